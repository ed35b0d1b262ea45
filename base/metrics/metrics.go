package metrics

const (
	EngineInferenceSecondsH = "The time spent per inference pass in seconds, by mechanism"
	EngineInferenceSecondsN = "fuzzyinfer_engine_inference_seconds"
	EngineInferencesH       = "The total number of inference passes, by mechanism"
	EngineInferencesN       = "fuzzyinfer_engine_inferences"
	EngineRulesEvaluatedH   = "The total number of rules evaluated during inference"
	EngineRulesEvaluatedN   = "fuzzyinfer_engine_rules_evaluated"
	EngineRulesSkippedH     = "The total number of rules skipped because they reference an unknown variable or term"
	EngineRulesSkippedN     = "fuzzyinfer_engine_rules_skipped"

	ServerModelReloadErrorsH = "The total number of failed model reloads"
	ServerModelReloadErrorsN = "fuzzyinfer_server_model_reload_errors"
	ServerModelReloadsH      = "The total number of successful model reloads"
	ServerModelReloadsN      = "fuzzyinfer_server_model_reloads"
	ServerModelRulesH        = "The number of rules in the currently served model"
	ServerModelRulesN        = "fuzzyinfer_server_model_rules"
	ServerReqsFailedH        = "The total number of requests answered with an error status, by endpoint"
	ServerReqsFailedN        = "fuzzyinfer_server_reqs_failed"
	ServerReqsReceivedH      = "The total number of requests received, by endpoint"
	ServerReqsReceivedN      = "fuzzyinfer_server_reqs_received"
)

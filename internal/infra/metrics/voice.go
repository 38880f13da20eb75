package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(voiceWorkflowStepsTotal) }

var voiceWorkflowStepsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "echobook_voice_workflow_steps_total",
		Help: "Voice registration steps by outcome.",
	},
	[]string{"step", "result"}, // step: normalize|create|upload|build, result: ok|error
)

func IncVoiceStep(step, result string) {
	voiceWorkflowStepsTotal.WithLabelValues(norm(step), norm(result)).Inc()
}

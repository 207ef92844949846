package workflow

import (
	"time"

	"github.com/SAP-F-2025/login-approval-service/internal/models"
)

const (
	LoopRequestApproval   = "request_approval"
	LoopCodeValidation    = "code_validation"
	LoopFinalVerification = "final_verification"
	LoopAccessGrant       = "access_grant"

	DefaultPollInterval = 2 * time.Second
	DefaultPollTimeout  = 300 * time.Second
)

// PollLoop is the published contract of one client polling loop.
// A zero Timeout means the loop runs until the caller gives up.
type PollLoop struct {
	Name     string        `json:"name"`
	Endpoint string        `json:"endpoint"`
	Interval time.Duration `json:"-"`
	Timeout  time.Duration `json:"-"`
	Terminal []string      `json:"terminal"`

	IntervalMs int64 `json:"intervalMs"`
	TimeoutMs  int64 `json:"timeoutMs"`
}

// PollingContract lists the four student loops for the given interval and timeout.
func PollingContract(interval, timeout time.Duration) []PollLoop {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if timeout <= 0 {
		timeout = DefaultPollTimeout
	}

	loops := []PollLoop{
		{
			Name:     LoopRequestApproval,
			Endpoint: "/api/student/request-status/{username}",
			Interval: interval,
			Terminal: []string{string(models.RequestApproved), string(models.RequestRejected)},
		},
		{
			Name:     LoopCodeValidation,
			Endpoint: "/api/student/code-status/{username}/{code}",
			Interval: interval,
			Timeout:  timeout,
			Terminal: []string{string(models.CodeApproved), string(models.CodeRejected)},
		},
		{
			Name:     LoopFinalVerification,
			Endpoint: "/api/student/final-verification/status/{username}",
			Interval: interval,
			Timeout:  timeout,
			Terminal: []string{string(models.FinalApproved), string(models.FinalRejected)},
		},
		{
			Name:     LoopAccessGrant,
			Endpoint: "/api/student/access-status/{username}",
			Interval: interval,
			Timeout:  timeout,
			Terminal: []string{"true"},
		},
	}

	for i := range loops {
		loops[i].IntervalMs = loops[i].Interval.Milliseconds()
		loops[i].TimeoutMs = loops[i].Timeout.Milliseconds()
	}
	return loops
}

// IsTerminal reports whether value ends the given loop. PollStatusNotFound
// never does: the row may simply not exist yet.
func IsTerminal(loop PollLoop, value string) bool {
	if value == models.PollStatusNotFound {
		return false
	}
	for _, t := range loop.Terminal {
		if t == value {
			return true
		}
	}
	return false
}

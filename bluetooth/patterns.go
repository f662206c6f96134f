package bluetooth

import "regexp"

// Outcome names a recognized signal in the interactive transcript.
type Outcome int

const (
	OutcomeTimeout Outcome = iota
	OutcomePrompt
	OutcomeConfirmPasskey
	OutcomePINRequest
	OutcomePairSuccess
	OutcomeAlreadyPaired
	OutcomePairFailed
	OutcomeNotAvailable
	OutcomeAgentRegistered
	OutcomeAgentFailed
	OutcomeDefaultAgent
	OutcomeTrustSucceeded
	OutcomeTrustFailed
	OutcomeConnectSuccess
	OutcomeConnectFailed
)

var outcomeNames = map[Outcome]string{
	OutcomeTimeout:         "timeout",
	OutcomePrompt:          "prompt",
	OutcomeConfirmPasskey:  "confirm-passkey",
	OutcomePINRequest:      "pin-request",
	OutcomePairSuccess:     "pair-success",
	OutcomeAlreadyPaired:   "already-paired",
	OutcomePairFailed:      "pair-failed",
	OutcomeNotAvailable:    "device-unavailable",
	OutcomeAgentRegistered: "agent-registered",
	OutcomeAgentFailed:     "agent-failed",
	OutcomeDefaultAgent:    "default-agent",
	OutcomeTrustSucceeded:  "trust-succeeded",
	OutcomeTrustFailed:     "trust-failed",
	OutcomeConnectSuccess:  "connect-success",
	OutcomeConnectFailed:   "connect-failed",
}

func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return "unknown"
}

// Pattern ties a transcript expression to the outcome it signals.
type Pattern struct {
	Outcome Outcome
	Expr    *regexp.Regexp
}

func newPattern(o Outcome, expr string) Pattern {
	return Pattern{Outcome: o, Expr: regexp.MustCompile(expr)}
}

// Match is the result of ExpectAny. Index is -1 on timeout.
type Match struct {
	Index   int
	Outcome Outcome
	Before  string
	Text    string
}

func (m Match) TimedOut() bool {
	return m.Outcome == OutcomeTimeout
}

func timeoutMatch(before string) Match {
	return Match{Index: -1, Outcome: OutcomeTimeout, Before: before}
}

var (
	promptPatterns = []Pattern{
		newPattern(OutcomePrompt, `\[[^\]]*\][^#\n]*#`),
	}

	agentPatterns = []Pattern{
		newPattern(OutcomeAgentRegistered, `Agent (is already )?registered`),
		newPattern(OutcomeAgentFailed, `Failed to register agent`),
	}

	defaultAgentPatterns = []Pattern{
		newPattern(OutcomeDefaultAgent, `Default agent request successful`),
		newPattern(OutcomeAgentFailed, `(No agent is registered|Failed to request default agent)`),
	}

	pairPatterns = []Pattern{
		newPattern(OutcomeConfirmPasskey, `Confirm passkey.*yes/no`),
		newPattern(OutcomePINRequest, `Enter PIN code:`),
		newPattern(OutcomePairSuccess, `Pairing successful`),
		newPattern(OutcomeAlreadyPaired, `(Already paired|Failed to pair: org\.bluez\.Error\.AlreadyExists)`),
		newPattern(OutcomePairFailed, `Failed to pair`),
		newPattern(OutcomeNotAvailable, `Device (\S+ )?not available`),
	}

	trustPatterns = []Pattern{
		newPattern(OutcomeTrustSucceeded, `trust succeeded`),
		newPattern(OutcomeTrustFailed, `Failed to set trusted`),
	}

	connectPatterns = []Pattern{
		newPattern(OutcomeConnectSuccess, `Connection successful`),
		newPattern(OutcomeConnectFailed, `Failed to connect`),
	}

	// ansiPattern strips color codes and readline markers bluetoothctl
	// emits even when stdout is not a terminal.
	ansiPattern = regexp.MustCompile("\x1b\\[[0-9;?]*[a-zA-Z]|[\x01\x02\r]")
)

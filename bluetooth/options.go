package bluetooth

import "time"

// Options tunes the control program and every bounded wait.
type Options struct {
	Binary           string
	DefaultPIN       string
	MaxPromptReplies int
	CacheDir         string
	ServiceName      string

	ListTimeout    time.Duration
	StepDelay      time.Duration
	PromptTimeout  time.Duration
	AgentTimeout   time.Duration
	PairTimeout    time.Duration
	TrustTimeout   time.Duration
	ConnectTimeout time.Duration
	CloseGrace     time.Duration
	ProbePause     time.Duration
	SpawnCheck     time.Duration
	ScanWindow     time.Duration
}

func DefaultOptions() Options {
	return Options{}.WithDefaults()
}

// WithDefaults fills every zero field.
func (o Options) WithDefaults() Options {
	setString(&o.Binary, DefaultBinary)
	setString(&o.DefaultPIN, DefaultPIN)
	setString(&o.CacheDir, DefaultCacheDir)
	setString(&o.ServiceName, DefaultServiceName)
	if o.MaxPromptReplies <= 0 {
		o.MaxPromptReplies = DefaultMaxPromptReplies
	}

	setDuration(&o.ListTimeout, DefaultListTimeout)
	setDuration(&o.StepDelay, DefaultStepDelay)
	setDuration(&o.PromptTimeout, DefaultPromptTimeout)
	setDuration(&o.AgentTimeout, DefaultAgentTimeout)
	setDuration(&o.PairTimeout, DefaultPairTimeout)
	setDuration(&o.TrustTimeout, DefaultTrustTimeout)
	setDuration(&o.ConnectTimeout, DefaultConnectTimeout)
	setDuration(&o.CloseGrace, DefaultCloseGrace)
	setDuration(&o.ProbePause, DefaultProbePause)
	setDuration(&o.SpawnCheck, DefaultSpawnCheck)
	setDuration(&o.ScanWindow, DefaultScanWindow)
	return o
}

func setString(v *string, def string) {
	if *v == "" {
		*v = def
	}
}

func setDuration(v *time.Duration, def time.Duration) {
	if *v <= 0 {
		*v = def
	}
}

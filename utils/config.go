package utils

import "time"

// Config holds all configurable server and game parameters.
type Config struct {
	// Deployment
	Addr    string `json:"addr"`    // HTTP/WebSocket listen address
	DataDir string `json:"dataDir"` // directory holding the prompt and sound catalogs

	// Room limits
	MinPlayers int `json:"minPlayers"` // minimum active participants to start a game
	MaxPlayers int `json:"maxPlayers"` // maximum participants per room

	// Game settings defaults and bounds
	DefaultMaxRounds int `json:"defaultMaxRounds"`
	DefaultMaxScore  int `json:"defaultMaxScore"`
	MaxRoundsBound   int `json:"maxRoundsBound"` // settings accept 1..MaxRoundsBound
	MaxScoreBound    int `json:"maxScoreBound"`  // settings accept 1..MaxScoreBound

	// Round shape
	PromptChoices int `json:"promptChoices"` // prompts offered to the judge each round
	SoundSetSize  int `json:"soundSetSize"`  // sounds dealt to each non-judge each round

	// Phase timing
	JudgeSelectionDelay    time.Duration `json:"judgeSelectionDelay"`    // auto-advance out of judge selection
	PromptSelectionTimeout time.Duration `json:"promptSelectionTimeout"` // judge picks a prompt
	SoundSelectionTimeout  time.Duration `json:"soundSelectionTimeout"`  // started on first submission
	PreJudgingDelay        time.Duration `json:"preJudgingDelay"`        // after viewer playback finishes
	RoundResultsDelay      time.Duration `json:"roundResultsDelay"`      // self-signal when no viewers
	CelebrationDelay       time.Duration `json:"celebrationDelay"`       // before GAME_OVER broadcast

	// Disconnection protocol
	GraceTimeout      time.Duration `json:"graceTimeout"`      // reconnection window before the vote
	VoteTimeout       time.Duration `json:"voteTimeout"`       // vote window, defaults to "continue"
	SweepInterval     time.Duration `json:"sweepInterval"`     // stale disconnected-entry sweep cadence
	SweepOuterTimeout time.Duration `json:"sweepOuterTimeout"` // entries older than this are dropped

	// Catalog
	CatalogCacheTTL time.Duration `json:"catalogCacheTTL"`

	// Shutdown
	EngineShutdownTimeout time.Duration `json:"engineShutdownTimeout"`
}

// DefaultConfig returns a Config struct with default values.
func DefaultConfig() Config {
	return Config{
		Addr:    ":3001",
		DataDir: "./data",

		MinPlayers: 3,
		MaxPlayers: 8,

		DefaultMaxRounds: 5,
		DefaultMaxScore:  3,
		MaxRoundsBound:   20,
		MaxScoreBound:    10,

		PromptChoices: 6,
		SoundSetSize:  10,

		JudgeSelectionDelay:    3 * time.Second,
		PromptSelectionTimeout: 30 * time.Second,
		SoundSelectionTimeout:  45 * time.Second,
		PreJudgingDelay:        2500 * time.Millisecond,
		RoundResultsDelay:      2 * time.Second,
		CelebrationDelay:       3 * time.Second,

		GraceTimeout:      30 * time.Second,
		VoteTimeout:       20 * time.Second,
		SweepInterval:     time.Minute,
		SweepOuterTimeout: 5 * time.Minute,

		CatalogCacheTTL: 5 * time.Minute,

		EngineShutdownTimeout: 5 * time.Second,
	}
}

// ConfigFromEnv builds a Config from environment variables, falling back to
// defaults. Deployment knobs and the operational protocol windows are
// exposed; per-round phase timing stays code-owned.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	cfg.Addr = ParseString("CACOPHONY_ADDR", cfg.Addr)
	cfg.DataDir = ParseString("CACOPHONY_DATA_DIR", cfg.DataDir)
	cfg.MinPlayers = ParseInt("CACOPHONY_MIN_PLAYERS", cfg.MinPlayers)
	cfg.MaxPlayers = ParseInt("CACOPHONY_MAX_PLAYERS", cfg.MaxPlayers)
	cfg.GraceTimeout = ParseDuration("CACOPHONY_GRACE_TIMEOUT", cfg.GraceTimeout)
	cfg.VoteTimeout = ParseDuration("CACOPHONY_VOTE_TIMEOUT", cfg.VoteTimeout)
	cfg.CatalogCacheTTL = ParseDuration("CACOPHONY_CATALOG_TTL", cfg.CatalogCacheTTL)
	return cfg
}

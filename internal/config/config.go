package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config contains every tunable that influences prediction or staking
// outcomes. It is constructed once per run and passed explicitly to the
// components that need it; nothing reads it from package state.
type Config struct {
	Model       ModelConfig       `yaml:"model"`
	Elo         EloConfig         `yaml:"elo"`
	Features    FeaturesConfig    `yaml:"features"`
	Stacking    StackingConfig    `yaml:"stacking"`
	Calibration CalibrationConfig `yaml:"calibration"`
	Ensemble    EnsembleConfig    `yaml:"ensemble"`
	Betting     BettingConfig     `yaml:"betting"`
	Backtest    BacktestConfig    `yaml:"backtest"`
}

// ModelConfig parameterizes the Dixon-Coles score model.
type ModelConfig struct {
	HalfLifeDays   float64 `yaml:"half_life_days"`  // time-decay half life for match weights (default: 180)
	MinMatches     int     `yaml:"min_matches"`     // minimum matches required to fit (default: 50)
	MaxGoals       int     `yaml:"max_goals"`       // scoreline grid bound, 0..MaxGoals each side (default: 8)
	MaxIterations  int     `yaml:"max_iterations"`  // optimizer iteration budget (default: 250)
	Tolerance      float64 `yaml:"tolerance"`       // log-likelihood convergence tolerance (default: 1e-6)
	LearningRate   float64 `yaml:"learning_rate"`   // gradient ascent step size (default: 0.002)
	HomeAdvRidge   float64 `yaml:"home_adv_ridge"`  // ridge pulling per-team home advantage to the mean (default: 5.0)
	RhoMin         float64 `yaml:"rho_min"`         // lower bound for the low-score correlation (default: -0.3)
	RhoMax         float64 `yaml:"rho_max"`         // upper bound for the low-score correlation (default: 0)
	RhoInterval    int     `yaml:"rho_interval"`    // iterations between rho line searches (default: 25)
	InitialHomeAdv float64 `yaml:"initial_home_adv"` // starting per-team home advantage offset (default: 0.25)
}

// EloConfig parameterizes the dual-context rating system.
type EloConfig struct {
	InitialRating  float64 `yaml:"initial_rating"`  // rating assigned to unseen teams (default: 1500)
	KFactor        float64 `yaml:"k_factor"`        // base update magnitude (default: 20)
	HomeAdvantage  float64 `yaml:"home_advantage"`  // rating points added to the home side (default: 80)
	BlendThreshold int     `yaml:"blend_threshold"` // contextual matches needed before the contextual rating stands alone (default: 10)
	SeasonRetain   float64 `yaml:"season_retain"`   // contextual deviation kept across seasons (default: 0.8)
	SeasonCountCap int     `yaml:"season_count_cap"` // contextual match count carried into a new season (default: 5)
	DrawBase       float64 `yaml:"draw_base"`       // draw probability between equal sides (default: 0.26)
}

// FeaturesConfig parameterizes the feature builder windows.
type FeaturesConfig struct {
	FormWindow  int `yaml:"form_window"`  // rolling window for form features (default: 5)
	H2HWindow   int `yaml:"h2h_window"`   // head-to-head lookback in meetings (default: 10)
	MaxRestDays int `yaml:"max_rest_days"` // rest days are clamped here to bound the feature (default: 30)
}

// StackingConfig parameterizes the boosted-tree classifier.
type StackingConfig struct {
	Rounds       int     `yaml:"rounds"`        // boosting rounds (default: 60)
	MaxDepth     int     `yaml:"max_depth"`     // tree depth (default: 3)
	LearningRate float64 `yaml:"learning_rate"` // shrinkage per round (default: 0.1)
	MinLeaf      int     `yaml:"min_leaf"`      // minimum samples per leaf (default: 20)
	MinSamples   int     `yaml:"min_samples"`   // training rows below which the classifier is skipped (default: 200)
}

// CalibrationConfig parameterizes post-hoc probability calibration.
type CalibrationConfig struct {
	Method          string  `yaml:"method"`           // "isotonic" or "platt" (default: isotonic)
	MinSamples      int     `yaml:"min_samples"`      // samples per class below which calibration is identity (default: 80)
	HoldoutFraction float64 `yaml:"holdout_fraction"` // chronological tail used for fitting (default: 0.3)
}

// EnsembleConfig holds the blend weights. These are empirically tuned
// values, not structural requirements.
type EnsembleConfig struct {
	WeightDixonColes float64 `yaml:"weight_dixon_coles"` // default: 0.65
	WeightElo        float64 `yaml:"weight_elo"`         // default: 0.35
	WeightStacking   float64 `yaml:"weight_stacking"`    // share given to the classifier when trained (default: 0.3)
}

// BettingConfig parameterizes edge evaluation and staking.
type BettingConfig struct {
	KellyFraction float64 `yaml:"kelly_fraction"` // fraction of full Kelly staked (default: 0.25)
	MaxStake      float64 `yaml:"max_stake"`      // stake cap as fraction of bankroll (default: 0.10)
	MinEdge       float64 `yaml:"min_edge"`       // minimum edge percent before a bet is recorded (default: 3.0)
	MinProb       float64 `yaml:"min_prob"`       // minimum model probability before a bet is recorded (default: 0.30)

	// Risk tier thresholds. A selection is "safe" when both safe minima
	// are met, "value" when both value minima are met, otherwise "risky".
	SafeMinProb  float64 `yaml:"safe_min_prob"`  // default: 0.55
	SafeMinEdge  float64 `yaml:"safe_min_edge"`  // default: 2.0
	ValueMinProb float64 `yaml:"value_min_prob"` // default: 0.40
	ValueMinEdge float64 `yaml:"value_min_edge"` // default: 5.0
}

// BacktestConfig parameterizes the walk-forward loop.
type BacktestConfig struct {
	WarmupMatches   int     `yaml:"warmup_matches"`   // matches fed before the first evaluation (default: 120)
	RefitInterval   int     `yaml:"refit_interval"`   // matches between score-model refits (default: 10)
	RetrainInterval int     `yaml:"retrain_interval"` // matches between classifier/calibrator retrains (default: 50)
	InitialBankroll float64 `yaml:"initial_bankroll"` // starting bankroll for the staking simulation (default: 1000)
	SeasonGapDays   int     `yaml:"season_gap_days"`  // fixture gap treated as a season boundary (default: 45)
}

// Default returns the configuration with all standard values.
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			HalfLifeDays:   180,
			MinMatches:     50,
			MaxGoals:       8,
			MaxIterations:  250,
			Tolerance:      1e-6,
			LearningRate:   0.002,
			HomeAdvRidge:   5.0,
			RhoMin:         -0.3,
			RhoMax:         0.0,
			RhoInterval:    25,
			InitialHomeAdv: 0.25,
		},
		Elo: EloConfig{
			InitialRating:  1500,
			KFactor:        20,
			HomeAdvantage:  80,
			BlendThreshold: 10,
			SeasonRetain:   0.8,
			SeasonCountCap: 5,
			DrawBase:       0.26,
		},
		Features: FeaturesConfig{
			FormWindow:  5,
			H2HWindow:   10,
			MaxRestDays: 30,
		},
		Stacking: StackingConfig{
			Rounds:       60,
			MaxDepth:     3,
			LearningRate: 0.1,
			MinLeaf:      20,
			MinSamples:   200,
		},
		Calibration: CalibrationConfig{
			Method:          "isotonic",
			MinSamples:      80,
			HoldoutFraction: 0.3,
		},
		Ensemble: EnsembleConfig{
			WeightDixonColes: 0.65,
			WeightElo:        0.35,
			WeightStacking:   0.3,
		},
		Betting: BettingConfig{
			KellyFraction: 0.25,
			MaxStake:      0.10,
			MinEdge:       3.0,
			MinProb:       0.30,
			SafeMinProb:   0.55,
			SafeMinEdge:   2.0,
			ValueMinProb:  0.40,
			ValueMinEdge:  5.0,
		},
		Backtest: BacktestConfig{
			WarmupMatches:   120,
			RefitInterval:   10,
			RetrainInterval: 50,
			InitialBankroll: 1000,
			SeasonGapDays:   45,
		},
	}
}

// Load reads a YAML file over the defaults, so partial files only
// override the keys they mention.
func Load(path string) (*Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate ensures all values are within workable ranges.
func (c *Config) Validate() error {
	if c.Model.HalfLifeDays <= 0 {
		return fmt.Errorf("model.half_life_days must be positive, got %f", c.Model.HalfLifeDays)
	}
	if c.Model.MinMatches < 10 {
		return fmt.Errorf("model.min_matches must be at least 10, got %d", c.Model.MinMatches)
	}
	if c.Model.MaxGoals < 3 {
		return fmt.Errorf("model.max_goals must be at least 3 to capture realistic scores, got %d", c.Model.MaxGoals)
	}
	if c.Model.RhoMin > c.Model.RhoMax || c.Model.RhoMin < -1 || c.Model.RhoMax > 0 {
		return fmt.Errorf("model rho bounds must satisfy -1 <= rho_min <= rho_max <= 0, got [%f, %f]", c.Model.RhoMin, c.Model.RhoMax)
	}
	if c.Elo.KFactor <= 0 {
		return fmt.Errorf("elo.k_factor must be positive, got %f", c.Elo.KFactor)
	}
	if c.Elo.SeasonRetain < 0 || c.Elo.SeasonRetain > 1 {
		return fmt.Errorf("elo.season_retain must be in [0,1], got %f", c.Elo.SeasonRetain)
	}
	if c.Elo.DrawBase <= 0 || c.Elo.DrawBase >= 0.5 {
		return fmt.Errorf("elo.draw_base must be in (0, 0.5), got %f", c.Elo.DrawBase)
	}
	if c.Calibration.Method != "isotonic" && c.Calibration.Method != "platt" {
		return fmt.Errorf("calibration.method must be isotonic or platt, got %q", c.Calibration.Method)
	}
	if c.Calibration.HoldoutFraction <= 0 || c.Calibration.HoldoutFraction >= 1 {
		return fmt.Errorf("calibration.holdout_fraction must be in (0,1), got %f", c.Calibration.HoldoutFraction)
	}
	if w := c.Ensemble.WeightDixonColes + c.Ensemble.WeightElo; w <= 0 {
		return fmt.Errorf("ensemble base weights must sum to a positive value, got %f", w)
	}
	if c.Betting.KellyFraction <= 0 || c.Betting.KellyFraction > 1 {
		return fmt.Errorf("betting.kelly_fraction must be in (0,1], got %f", c.Betting.KellyFraction)
	}
	if c.Betting.MaxStake <= 0 || c.Betting.MaxStake > 1 {
		return fmt.Errorf("betting.max_stake must be in (0,1], got %f", c.Betting.MaxStake)
	}
	if c.Backtest.RefitInterval < 1 || c.Backtest.RetrainInterval < 1 {
		return fmt.Errorf("backtest intervals must be at least 1")
	}
	return nil
}

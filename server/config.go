package server

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"minerduel/arena"
	"minerduel/mechanics"
)

// Config 服务配置，来自环境变量（前缀 MINERDUEL_），可选 .env 文件
type Config struct {
	Addr     string `env:"ADDR" envDefault:":8080"`
	LogFile  string `env:"LOG_FILE" envDefault:"app.log"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"debug"`

	TickInterval     time.Duration `env:"TICK_INTERVAL" envDefault:"50ms"`
	StartSwitchDelay time.Duration `env:"START_SWITCH_DELAY" envDefault:"10s"`
	SwitchDelta      time.Duration `env:"SWITCH_DELTA" envDefault:"500ms"`
	SwitchDelayMin   time.Duration `env:"SWITCH_DELAY_MIN" envDefault:"2s"`
	GameDuration     time.Duration `env:"GAME_DURATION" envDefault:"3m"`
	ScoresToWin      int           `env:"SCORES_TO_WIN" envDefault:"30"`
	DrillCooldown    time.Duration `env:"DRILL_COOLDOWN" envDefault:"300ms"`
	MoveCooldown     time.Duration `env:"MOVE_COOLDOWN" envDefault:"100ms"`
	JumpCooldown     time.Duration `env:"JUMP_COOLDOWN" envDefault:"800ms"`
	ParallelSessions int           `env:"PARALLEL_SESSIONS" envDefault:"8"`

	BoardWidth  int   `env:"BOARD_WIDTH" envDefault:"24"`
	BoardHeight int   `env:"BOARD_HEIGHT" envDefault:"16"`
	BoardSeed   int64 `env:"BOARD_SEED" envDefault:"0"`
}

// LoadConfig 先加载 .env（不存在则忽略），再解析环境变量
func LoadConfig(dotenv string) (Config, error) {
	var cfg Config
	if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load %s: %w", dotenv, err)
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "MINERDUEL_"}); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch {
	case c.TickInterval <= 0:
		return errors.New("tick interval must be positive")
	case c.SwitchDelayMin <= 0 || c.StartSwitchDelay < c.SwitchDelayMin:
		return fmt.Errorf("switch delays must satisfy 0 < min (%s) <= start (%s)", c.SwitchDelayMin, c.StartSwitchDelay)
	case c.SwitchDelta < 0:
		return errors.New("switch delta must not be negative")
	case c.BoardWidth < 4 || c.BoardHeight < 4:
		return fmt.Errorf("board %dx%d is too small", c.BoardWidth, c.BoardHeight)
	}
	return nil
}

// Settings 转换为机制层参数
func (c Config) Settings() mechanics.Settings {
	return mechanics.Settings{
		TickInterval: c.TickInterval,
		Swap: mechanics.DecayPolicy{
			Start: c.StartSwitchDelay,
			Delta: c.SwitchDelta,
			Min:   c.SwitchDelayMin,
		},
		Cooldowns: mechanics.Cooldowns{
			Drill: c.DrillCooldown,
			Move:  c.MoveCooldown,
			Jump:  c.JumpCooldown,
		},
		GameDuration:     c.GameDuration,
		ScoresToWin:      c.ScoresToWin,
		ParallelSessions: c.ParallelSessions,
	}
}

// Rules 转换为地图规则
func (c Config) Rules() arena.Rules {
	r := arena.DefaultRules()
	r.Width = c.BoardWidth
	r.Height = c.BoardHeight
	return r
}

package params

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Hook struct {
	FeeBps       uint32 // execution fee in basis points (max 1000 = 10%)
	FeeCollector string // 0x address fee sweeps pay to
	TickCapacity int    // max resting orders per (pool, tick)
}

type Node struct {
	DBPath  string
	APIAddr string
	LogFile string
}

// Devnet describes the single pool the devnet binary registers at boot.
type Devnet struct {
	AssetA      string // 0x address; zero address = native asset
	AssetB      string
	FeeTierBps  uint32
	TickSpacing int32
	InitialTick int32
}

type Config struct {
	Hook   Hook
	Node   Node
	Devnet Devnet
}

func Default() Config {
	return Config{
		Hook: Hook{
			FeeBps:       30, // 0.3%
			FeeCollector: "0x0000000000000000000000000000000000000000",
			TickCapacity: 200,
		},
		Node: Node{
			DBPath:  "data/tickhook",
			APIAddr: ":8080",
			LogFile: "data/node.log",
		},
		Devnet: Devnet{
			AssetA:      "0x00000000000000000000000000000000000000aa",
			AssetB:      "0x00000000000000000000000000000000000000bb",
			FeeTierBps:  30,
			TickSpacing: 60,
			InitialTick: 0,
		},
	}
}

// LoadFromEnv loads configuration from a .env file (if present) and
// environment variables. Priority: ENV > .env file > defaults.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	if v := os.Getenv("HOOK_FEE_BPS"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			cfg.Hook.FeeBps = uint32(n)
		}
	}
	if v := os.Getenv("HOOK_FEE_COLLECTOR"); v != "" {
		cfg.Hook.FeeCollector = v
	}
	if v := os.Getenv("HOOK_TICK_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Hook.TickCapacity = n
		}
	}

	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.Node.DBPath = v
	}
	if v := os.Getenv("API_ADDR"); v != "" {
		cfg.Node.APIAddr = v
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		cfg.Node.LogFile = v
	}

	if v := os.Getenv("DEVNET_ASSET_A"); v != "" {
		cfg.Devnet.AssetA = v
	}
	if v := os.Getenv("DEVNET_ASSET_B"); v != "" {
		cfg.Devnet.AssetB = v
	}
	if v := os.Getenv("DEVNET_FEE_TIER_BPS"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			cfg.Devnet.FeeTierBps = uint32(n)
		}
	}
	if v := os.Getenv("DEVNET_TICK_SPACING"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil && n > 0 {
			cfg.Devnet.TickSpacing = int32(n)
		}
	}
	if v := os.Getenv("DEVNET_INITIAL_TICK"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			cfg.Devnet.InitialTick = int32(n)
		}
	}

	return cfg
}

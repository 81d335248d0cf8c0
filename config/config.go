package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/arodriguezf/hypebot/internal/domain"
)

// Config es la configuración completa del bot.
type Config struct {
	Trading   TradingConfig   `yaml:"trading"`
	Custodial CustodialConfig `yaml:"custodial"`
	Storage   StorageConfig   `yaml:"storage"`
	Log       LogConfig       `yaml:"log"`
	Networks  []NetworkConfig `yaml:"networks"`
	Tokens    []TokenConfig   `yaml:"tokens"`
}

// TradingConfig controla la ejecución de swaps.
type TradingConfig struct {
	SlippagePct float64 `yaml:"slippage_pct"` // protección del output, típico 5%
	PrivateKey  string  `yaml:"-"`            // solo vía env PRIVATE_KEY, nunca en YAML
}

// CustodialConfig apunta a la API de trading custodial (familia no-EVM).
type CustodialConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"-"` // solo vía env CUSTODIAL_API_KEY
}

// StorageConfig controla dónde se persisten las posiciones.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// NetworkConfig describe una red soportada.
type NetworkConfig struct {
	ID             string  `yaml:"id"`
	Name           string  `yaml:"name"`
	NativeSymbol   string  `yaml:"native_symbol"`
	Family         string  `yaml:"family"` // evm | solana
	ChainID        int64   `yaml:"chain_id"`
	RPCURL         string  `yaml:"rpc_url"`
	ExplorerTxURL  string  `yaml:"explorer_tx_url"`
	Testnet        bool    `yaml:"testnet"`
	Enabled        bool    `yaml:"enabled"`
	MinTradeNative float64 `yaml:"min_trade_native"`
	MinLiquidTrade float64 `yaml:"min_liquid_trade"`
}

// TokenConfig es una entrada del registro estático de tokens.
type TokenConfig struct {
	Symbol     string `yaml:"symbol"`
	Name       string `yaml:"name"`
	Address    string `yaml:"address"`
	Decimals   int    `yaml:"decimals"`
	NetworkID  string `yaml:"network_id"`
	Verified   bool   `yaml:"verified"` // sin verificar = el resolver lo trata como desconocido
	Confidence int    `yaml:"confidence"`
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// DomainNetworks convierte las redes configuradas al tipo de dominio.
func (c *Config) DomainNetworks() []domain.Network {
	out := make([]domain.Network, 0, len(c.Networks))
	for _, n := range c.Networks {
		out = append(out, domain.Network{
			ID:             n.ID,
			Name:           n.Name,
			NativeSymbol:   n.NativeSymbol,
			Family:         domain.Family(n.Family),
			ChainID:        n.ChainID,
			RPCURL:         n.RPCURL,
			ExplorerTxURL:  n.ExplorerTxURL,
			Testnet:        n.Testnet,
			Enabled:        n.Enabled,
			MinTradeNative: n.MinTradeNative,
			MinLiquidTrade: n.MinLiquidTrade,
		})
	}
	return out
}

// DomainTokens convierte el registro de tokens al tipo de dominio.
func (c *Config) DomainTokens() []domain.ResolvedToken {
	out := make([]domain.ResolvedToken, 0, len(c.Tokens))
	for _, t := range c.Tokens {
		out = append(out, domain.ResolvedToken{
			Symbol:     t.Symbol,
			Name:       t.Name,
			Address:    t.Address,
			Decimals:   t.Decimals,
			NetworkID:  t.NetworkID,
			Valid:      t.Verified,
			Confidence: t.Confidence,
		})
	}
	return out
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	cfg.Trading.PrivateKey = os.Getenv("PRIVATE_KEY")
	cfg.Custodial.APIKey = os.Getenv("CUSTODIAL_API_KEY")
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Trading.SlippagePct <= 0 || cfg.Trading.SlippagePct >= 100 {
		cfg.Trading.SlippagePct = 5
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "hypebot.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	for i := range cfg.Networks {
		n := &cfg.Networks[i]
		if n.MinTradeNative <= 0 {
			n.MinTradeNative = 0.001
		}
		if n.Family == string(domain.FamilyEVM) && n.MinLiquidTrade < n.MinTradeNative {
			n.MinLiquidTrade = n.MinTradeNative
		}
	}
}

// validate comprueba la coherencia de la configuración cargada.
func validate(cfg *Config) error {
	seen := make(map[string]bool, len(cfg.Networks))
	for _, n := range cfg.Networks {
		if n.ID == "" {
			return fmt.Errorf("network without id")
		}
		if seen[n.ID] {
			return fmt.Errorf("duplicate network id %q", n.ID)
		}
		seen[n.ID] = true

		switch domain.Family(n.Family) {
		case domain.FamilyEVM:
			if n.RPCURL == "" {
				return fmt.Errorf("network %s: rpc_url is required for evm networks", n.ID)
			}
			if n.ChainID == 0 {
				return fmt.Errorf("network %s: chain_id is required for evm networks", n.ID)
			}
		case domain.FamilySolana:
			// la familia custodial no necesita RPC propio
		default:
			return fmt.Errorf("network %s: unknown family %q", n.ID, n.Family)
		}
	}
	for _, t := range cfg.Tokens {
		if t.Symbol == "" {
			return fmt.Errorf("token without symbol")
		}
		if t.NetworkID != "" && !seen[t.NetworkID] {
			return fmt.Errorf("token %s: unknown network_id %q", t.Symbol, t.NetworkID)
		}
	}
	return nil
}

package config

import (
	"encoding/json"
	"os"
	"sort"

	"github.com/pkg/errors"
)

// TierRole maps a level threshold to the role granted once it is reached.
type TierRole struct {
	RoleID string `json:"role_id"`
	Level  int    `json:"level"`
}

type Discord struct {
	Token   string `json:"token"`
	Prefix  string `json:"prefix"`
	GuildID string `json:"guild_id"`
}

type Moderation struct {
	LogChannelID  string `json:"log_channel_id"`
	MutedRoleName string `json:"muted_role_name"`
	LedgerPath    string `json:"ledger_path"`
}

type Levels struct {
	DatabasePath string     `json:"database_path"`
	Roles        []TierRole `json:"roles"`
}

type Logging struct {
	SentryDSN      string `json:"sentry_dsn"`
	DiscordWebhook string `json:"discord_webhook"`
}

type Config struct {
	Discord    Discord    `json:"discord"`
	Moderation Moderation `json:"moderation"`
	Levels     Levels     `json:"levels"`
	Logging    Logging    `json:"logging"`
	Debug      bool       `json:"debug"`
}

// Load reads the config file at $path. The discord token may also come from
// the DISCORD_TOKEN environment variable, which wins over the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading config file")
	}

	conf := &Config{}
	if err := json.Unmarshal(data, conf); err != nil {
		return nil, errors.Wrap(err, "parsing config file")
	}

	if token := os.Getenv("DISCORD_TOKEN"); token != "" {
		conf.Discord.Token = token
	}

	conf.applyDefaults()

	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func (c *Config) applyDefaults() {
	if c.Discord.Prefix == "" {
		c.Discord.Prefix = "!"
	}
	if c.Moderation.MutedRoleName == "" {
		c.Moderation.MutedRoleName = "Muted"
	}
	if c.Moderation.LedgerPath == "" {
		c.Moderation.LedgerPath = "data/moderation_actions.json"
	}
	if c.Levels.DatabasePath == "" {
		c.Levels.DatabasePath = "data/leveling.db"
	}
}

func (c *Config) Validate() error {
	if c.Discord.Token == "" {
		return errors.New("config: discord.token is required")
	}
	if c.Discord.GuildID == "" {
		return errors.New("config: discord.guild_id is required")
	}

	seen := make(map[string]bool)
	for _, tier := range c.Levels.Roles {
		if tier.RoleID == "" {
			return errors.New("config: levels.roles entry without role_id")
		}
		if tier.Level <= 0 {
			return errors.Errorf("config: levels.roles entry %s has non-positive level %d", tier.RoleID, tier.Level)
		}
		if seen[tier.RoleID] {
			return errors.Errorf("config: levels.roles lists role %s twice", tier.RoleID)
		}
		seen[tier.RoleID] = true
	}
	return nil
}

// SortedTierRoles returns the tier table ordered ascending by level threshold.
func (c *Config) SortedTierRoles() []TierRole {
	tiers := make([]TierRole, len(c.Levels.Roles))
	copy(tiers, c.Levels.Roles)
	sort.Slice(tiers, func(i, j int) bool {
		return tiers[i].Level < tiers[j].Level
	})
	return tiers
}

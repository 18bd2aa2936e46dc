package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/teemow/inboxassist/internal/actions"
	"github.com/teemow/inboxassist/internal/credential"
	"github.com/teemow/inboxassist/internal/inference"
	"github.com/teemow/inboxassist/internal/mailctx"
	"github.com/teemow/inboxassist/internal/reply"
)

// EnvPrefix prefixes every environment override, e.g. INBOXASSIST_SERVER_URL.
const EnvPrefix = "INBOXASSIST"

// ServerConfig describes the inference service connection.
type ServerConfig struct {
	URL          string `mapstructure:"url"`
	APIVersion   string `mapstructure:"api_version"`
	TimeoutMS    int    `mapstructure:"timeout_ms"`
	MaxRetries   int    `mapstructure:"max_retries"`
	RetryDelayMS int    `mapstructure:"retry_delay_ms"`
	Debug        bool   `mapstructure:"debug"`
}

// ModelConfig names the model and its default generation parameters.
type ModelConfig struct {
	Name              string               `mapstructure:"name"`
	DefaultParameters inference.Parameters `mapstructure:"default_parameters"`
}

// SecurityConfig holds the inference credential or a keyring reference to it.
type SecurityConfig struct {
	APIKey           string `mapstructure:"api_key"`
	APIKeyKeyringRef string `mapstructure:"api_key_keyring_ref"`
}

// ReplyConfig holds reply injector settings.
type ReplyConfig struct {
	IncludeThread bool   `mapstructure:"include_thread"`
	OpenDelayMS   int    `mapstructure:"open_delay_ms"`
	DefaultStyle  string `mapstructure:"default_style"`
}

// MetricsConfig controls the Prometheus endpoint in serve mode.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// GoogleConfig holds the OAuth client used for Gmail and Calendar.
type GoogleConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	Account      string `mapstructure:"account"`
	CalendarID   string `mapstructure:"calendar_id"`
}

// IMAPConfig describes the IMAP mailbox used by --imap-uid.
type IMAPConfig struct {
	Addr          string `mapstructure:"addr"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	TLS           bool   `mapstructure:"tls"`
	Insecure      bool   `mapstructure:"insecure"`
	Mailbox       string `mapstructure:"mailbox"`
	DraftsMailbox string `mapstructure:"drafts_mailbox"`
}

// IdentityConfig is the user replies and drafts are written from.
type IdentityConfig struct {
	Name  string `mapstructure:"name"`
	Email string `mapstructure:"email"`
}

// MailConfig restricts message files opened through the MCP server.
type MailConfig struct {
	// Dir is the directory eml sources must live in. Empty disables eml
	// sources for MCP clients; the CLI is not restricted.
	Dir string `mapstructure:"dir"`
}

// Config is the complete configuration.
type Config struct {
	Server          ServerConfig      `mapstructure:"server"`
	Model           ModelConfig       `mapstructure:"model"`
	Security        SecurityConfig    `mapstructure:"security"`
	Context         mailctx.Options   `mapstructure:"context"`
	PromptTemplates map[string]string `mapstructure:"prompt_templates"`
	Reply           ReplyConfig       `mapstructure:"reply"`
	Metrics         MetricsConfig     `mapstructure:"metrics"`
	Google          GoogleConfig      `mapstructure:"google"`
	IMAP            IMAPConfig        `mapstructure:"imap"`
	Identity        IdentityConfig    `mapstructure:"identity"`
	Mail            MailConfig        `mapstructure:"mail"`

	// File is the configuration file that was read, or "" if none was.
	File string `mapstructure:"-"`
}

// DefaultPath returns $XDG_CONFIG_HOME/inboxassist/config.yaml or the
// platform equivalent.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(dir, "inboxassist", "config.yaml")
}

// Load reads the configuration. A .env file in the working directory is
// loaded into the environment first. When path is empty the default path is
// used and may be missing; an explicit path must exist.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	file := path
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !(errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		file = ""
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.File = file

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the values that would otherwise fail at first use.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Server.URL) == "" {
		errs = append(errs, errors.New("server.url must not be empty"))
	}
	if strings.TrimSpace(c.Model.Name) == "" {
		errs = append(errs, errors.New("model.name must not be empty"))
	}
	if c.Server.TimeoutMS <= 0 {
		errs = append(errs, fmt.Errorf("server.timeout_ms must be positive, got %d", c.Server.TimeoutMS))
	}
	if c.Server.MaxRetries < 1 {
		errs = append(errs, fmt.Errorf("server.max_retries must be at least 1, got %d", c.Server.MaxRetries))
	}
	if c.Server.RetryDelayMS < 0 {
		errs = append(errs, fmt.Errorf("server.retry_delay_ms must not be negative, got %d", c.Server.RetryDelayMS))
	}
	if c.Context.MaxBodyLength < 0 {
		errs = append(errs, fmt.Errorf("context.max_body_length must not be negative, got %d", c.Context.MaxBodyLength))
	}
	if c.Reply.DefaultStyle != "" && !reply.IsStyle(c.Reply.DefaultStyle) {
		errs = append(errs, fmt.Errorf("reply.default_style %q is not one of %s",
			c.Reply.DefaultStyle, strings.Join(reply.Styles(), ", ")))
	}
	return errors.Join(errs...)
}

// Inference returns the inference client configuration for apiKey.
func (c *Config) Inference(apiKey string) inference.Config {
	return inference.Config{
		BaseURL:    c.Server.URL,
		APIVersion: c.Server.APIVersion,
		Model:      c.Model.Name,
		APIKey:     apiKey,
		Timeout:    time.Duration(c.Server.TimeoutMS) * time.Millisecond,
		MaxRetries: c.Server.MaxRetries,
		RetryDelay: time.Duration(c.Server.RetryDelayMS) * time.Millisecond,
		Debug:      c.Server.Debug,
	}
}

// Actions returns the orchestrator configuration. Template keys that are
// not action names are kept, so custom kinds can carry templates too.
func (c *Config) Actions() actions.Config {
	templates := make(map[actions.Kind]string, len(c.PromptTemplates))
	for k, v := range c.PromptTemplates {
		templates[actions.Kind(strings.ToLower(k))] = v
	}
	return actions.Config{
		Templates:         templates,
		DefaultParameters: c.Model.DefaultParameters,
	}
}

// ReplyInjector returns the reply injector configuration.
func (c *Config) ReplyInjector() reply.Config {
	return reply.Config{
		Template:          c.PromptTemplates[string(actions.KindReply)],
		DefaultParameters: c.Model.DefaultParameters,
		IncludeThread:     c.Reply.IncludeThread,
		OpenDelay:         time.Duration(c.Reply.OpenDelayMS) * time.Millisecond,
	}
}

// SecretGetter reads secrets by key.
type SecretGetter interface {
	Get(key string) (string, error)
}

// ResolveAPIKey returns security.api_key when set, else the keyring entry
// named by security.api_key_keyring_ref. Without a reference the entry
// written by "credential set" is used if it exists; otherwise the key is
// empty and requests are sent without credentials.
func (c *Config) ResolveAPIKey(secrets SecretGetter) (string, error) {
	if c.Security.APIKey != "" {
		return c.Security.APIKey, nil
	}
	ref := c.Security.APIKeyKeyringRef
	if ref == "" {
		if secrets == nil {
			return "", nil
		}
		key, err := secrets.Get(credential.KeyInferenceAPIKey)
		if errors.Is(err, credential.ErrNotFound) {
			return "", nil
		}
		if err != nil {
			return "", fmt.Errorf("resolving api key: %w", err)
		}
		return key, nil
	}
	if secrets == nil {
		return "", fmt.Errorf("api key keyring reference %q set but no keyring available", ref)
	}
	key, err := secrets.Get(ref)
	if err != nil {
		return "", fmt.Errorf("resolving api key: %w", err)
	}
	return key, nil
}

// ResolveIMAPPassword returns imap.password when set, else the keyring
// entry for the IMAP user.
func (c *Config) ResolveIMAPPassword(secrets SecretGetter) (string, error) {
	if c.IMAP.Password != "" {
		return c.IMAP.Password, nil
	}
	if secrets == nil {
		return "", errors.New("no IMAP password configured")
	}
	pw, err := secrets.Get(credential.IMAPPasswordKey(c.IMAP.User))
	if err != nil {
		return "", fmt.Errorf("resolving IMAP password: %w", err)
	}
	return pw, nil
}

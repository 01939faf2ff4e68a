package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Output  string `yaml:"output"`
	Browser string `yaml:"browser"` // auto, always, never

	ExcludeGIFs  bool `yaml:"exclude_gifs"`
	SkipTiny     bool `yaml:"skip_tiny"`
	Aggressive   bool `yaml:"aggressive"`
	BatchCapture bool `yaml:"batch_capture"`
	Transcode    bool `yaml:"transcode"`

	CBZ  bool `yaml:"cbz"`
	PDF  bool `yaml:"pdf"`
	EPUB bool `yaml:"epub"`

	Cookie     string `yaml:"cookie"`
	CookieFile string `yaml:"cookie_file"`
	UserAgent  string `yaml:"user_agent"`

	Debug bool `yaml:"debug"`
}

// Options are the flag-level overrides. Zero values mean "not set" so
// the file keeps its say; KeepTiny exists because skip_tiny defaults on
// and needs an explicit off switch.
type Options struct {
	IgnoreConfig bool

	Output  string
	Browser string

	ExcludeGIFs  bool
	KeepTiny     bool
	Aggressive   bool
	BatchCapture bool
	Transcode    bool

	CBZ  bool
	PDF  bool
	EPUB bool

	Cookie     string
	CookieFile string
	UserAgent  string

	Debug bool
}

func DefaultConfig() *Config {
	return &Config{
		Output:   ".",
		Browser:  "auto",
		SkipTiny: true,
		CBZ:      true,
	}
}

func SaveYAML(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func loadYAML(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	c := DefaultConfig()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, err
	}

	return c, nil
}

// LoadMerged layers flag overrides on top of the config file, or on top
// of built-in defaults when no file exists yet. The returned string is
// the source shown to the user.
func LoadMerged(opts Options) (*Config, string, error) {
	if opts.IgnoreConfig {
		cfg := DefaultConfig()
		mergeConfig(cfg, opts)
		normalizeDefaults(cfg)
		return cfg, "(ignored config)", nil
	}

	path := ConfigFile()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()
		mergeConfig(cfg, opts)
		normalizeDefaults(cfg)
		return cfg, "(default config in memory)\nRun `comicgrab config init` to create an actual config\n", nil
	}

	cfg, err := loadYAML(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config %s: %w", path, err)
	}

	mergeConfig(cfg, opts)
	normalizeDefaults(cfg)

	return cfg, path, nil
}

func mergeConfig(c *Config, o Options) {
	if o.Output != "" {
		c.Output = o.Output
	}
	if o.Browser != "" {
		c.Browser = o.Browser
	}
	if o.ExcludeGIFs {
		c.ExcludeGIFs = true
	}
	if o.KeepTiny {
		c.SkipTiny = false
	}
	if o.Aggressive {
		c.Aggressive = true
	}
	if o.BatchCapture {
		c.BatchCapture = true
	}
	if o.Transcode {
		c.Transcode = true
	}
	if o.CBZ {
		c.CBZ = true
	}
	if o.PDF {
		c.PDF = true
	}
	if o.EPUB {
		c.EPUB = true
	}
	if o.Cookie != "" {
		c.Cookie = o.Cookie
	}
	if o.CookieFile != "" {
		c.CookieFile = o.CookieFile
	}
	if o.UserAgent != "" {
		c.UserAgent = o.UserAgent
	}
	if o.Debug {
		c.Debug = true
	}
}

func normalizeDefaults(c *Config) {
	if c.Output == "" {
		c.Output = "."
	}

	switch strings.ToLower(c.Browser) {
	case "always", "never":
		c.Browser = strings.ToLower(c.Browser)
	default:
		c.Browser = "auto"
	}
}

func (c *Config) Print() {
	fmt.Printf(" -output: %s\n", c.Output)
	fmt.Printf(" -browser: %s\n", c.Browser)
	fmt.Printf(" -skip_tiny: %t\n", c.SkipTiny)
	if c.ExcludeGIFs {
		fmt.Printf(" -exclude_gifs: %t\n", c.ExcludeGIFs)
	}
	if c.Aggressive {
		fmt.Printf(" -aggressive: %t\n", c.Aggressive)
	}
	if c.BatchCapture {
		fmt.Printf(" -batch_capture: %t\n", c.BatchCapture)
	}
	if c.Transcode {
		fmt.Printf(" -transcode: %t\n", c.Transcode)
	}
	fmt.Printf(" -cbz: %t\n", c.CBZ)
	if c.PDF {
		fmt.Printf(" -pdf: %t\n", c.PDF)
	}
	if c.EPUB {
		fmt.Printf(" -epub: %t\n", c.EPUB)
	}
	if c.CookieFile != "" {
		fmt.Printf(" -cookie_file: %s\n", c.CookieFile)
	}
	if c.UserAgent != "" {
		fmt.Printf(" -user_agent: %s\n", c.UserAgent)
	}
	if c.Debug {
		fmt.Printf(" -debug: %t\n", c.Debug)
	}
}

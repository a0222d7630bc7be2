package config

// Config is the main configuration carrier.
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Chart         ChartConfig         `mapstructure:"chart"`
	Variables     []VariableConfig    `mapstructure:"variables"`
	Column        ColumnConfig        `mapstructure:"column"`
	Concentration ConcentrationConfig `mapstructure:"concentration"`
	Import        ImportConfig        `mapstructure:"import"`
	Session       SessionConfig       `mapstructure:"session"`
}

type AppConfig struct {
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
	HTTPAddr string `mapstructure:"http_addr"`
	LogPath  string `mapstructure:"log_path"`
}

// ChartConfig styles the rendered chromatogram.
type ChartConfig struct {
	WidthPx    int    `mapstructure:"width_px"`
	HeightPx   int    `mapstructure:"height_px"`
	Background string `mapstructure:"background"`
	FontFamily string `mapstructure:"font_family"`
	FontSizePx int    `mapstructure:"font_size_px"`
	// StylePath points to the hot-reloadable style overlay file; empty
	// disables watching.
	StylePath string `mapstructure:"style_path"`
}

// VariableConfig names one instrument channel and how to draw it.
type VariableConfig struct {
	Name  string `mapstructure:"name"`
	Unit  string `mapstructure:"unit"`
	Color string `mapstructure:"color"`
}

// ColumnConfig carries the packed-bed geometry used for HETP.
type ColumnConfig struct {
	LengthCm float64 `mapstructure:"length_cm"`
}

// ConcentrationConfig are the default Beer-Lambert constants, overridable
// per request.
type ConcentrationConfig struct {
	ExtinctionCoeff float64 `mapstructure:"extinction_coeff"`
	PathLengthCm    float64 `mapstructure:"path_length_cm"`
	MolecularWeight float64 `mapstructure:"molecular_weight"`
}

type ImportConfig struct {
	ProfilesPath string `mapstructure:"profiles_path"`
}

type SessionConfig struct {
	StorePath string `mapstructure:"store_path"`
}

// VariableByName returns the configured channel entry, ok=false when the
// variable is not configured.
func (c *Config) VariableByName(name string) (VariableConfig, bool) {
	for _, v := range c.Variables {
		if v.Name == name {
			return v, true
		}
	}
	return VariableConfig{}, false
}

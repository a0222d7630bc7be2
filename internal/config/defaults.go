package config

const (
	defaultAppEnv         = "dev"
	defaultAppLogLevel    = "info"
	defaultAppHTTPAddr    = ":8089"
	defaultChartWidth     = 1500
	defaultChartHeight    = 560
	defaultChartBG        = "#ffffff"
	defaultChartFont      = "Arial"
	defaultChartFontSize  = 12
	defaultColumnLengthCm = 0
	defaultExtinction     = 1.0
	defaultPathLengthCm   = 1.0
	defaultMolecularWt    = 1000.0
	defaultProfilesPath   = "configs/import_profiles.yaml"
	defaultSessionStore   = "data/sessions.db"
)

// defaultVariables mirrors the factory channel set of the Unicorn export;
// colors follow the classic matplotlib single-letter palette.
func defaultVariables() []VariableConfig {
	return []VariableConfig{
		{Name: "UV", Unit: "mAU", Color: "#1f77b4"},
		{Name: "pH", Unit: "", Color: "#2ca02c"},
		{Name: "Conductivity", Unit: "mS/cm", Color: "#d62728"},
		{Name: "System Pressure", Unit: "MPa", Color: "#9467bd"},
		{Name: "Gradient", Unit: "%", Color: "#17becf"},
		{Name: "Flow rate", Unit: "mL/min", Color: "#8c564b"},
		{Name: "Fraction", Unit: "", Color: "#7f7f7f"},
		{Name: "Injection", Unit: "mL/min", Color: "#e377c2"},
		{Name: "Pre-column Pressure", Unit: "MPa", Color: "#bcbd22"},
	}
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = defaultAppEnv
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = defaultAppLogLevel
	}
	if c.App.HTTPAddr == "" {
		c.App.HTTPAddr = defaultAppHTTPAddr
	}
	if c.Chart.WidthPx <= 0 {
		c.Chart.WidthPx = defaultChartWidth
	}
	if c.Chart.HeightPx <= 0 {
		c.Chart.HeightPx = defaultChartHeight
	}
	if c.Chart.Background == "" {
		c.Chart.Background = defaultChartBG
	}
	if c.Chart.FontFamily == "" {
		c.Chart.FontFamily = defaultChartFont
	}
	if c.Chart.FontSizePx <= 0 {
		c.Chart.FontSizePx = defaultChartFontSize
	}
	if len(c.Variables) == 0 {
		c.Variables = defaultVariables()
	}
	if c.Concentration.ExtinctionCoeff <= 0 {
		c.Concentration.ExtinctionCoeff = defaultExtinction
	}
	if c.Concentration.PathLengthCm <= 0 {
		c.Concentration.PathLengthCm = defaultPathLengthCm
	}
	if c.Concentration.MolecularWeight <= 0 {
		c.Concentration.MolecularWeight = defaultMolecularWt
	}
	if c.Import.ProfilesPath == "" {
		c.Import.ProfilesPath = defaultProfilesPath
	}
	if c.Session.StorePath == "" {
		c.Session.StorePath = defaultSessionStore
	}
}

package pipeline

import (
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/rxtech-lab/argo-forecast/internal/forecaster"
	"github.com/rxtech-lab/argo-forecast/internal/types"
	"github.com/rxtech-lab/argo-forecast/internal/version"
	"github.com/rxtech-lab/argo-forecast/pkg/errors"
	"github.com/rxtech-lab/argo-forecast/pkg/marketdata"
)

// Config is the full run configuration. Dates are calendar dates in 2006-01-02 form and the
// acquisition interval is closed on both ends.
type Config struct {
	// Version is the forecast release the file was written for. Empty skips the check.
	Version string `yaml:"version,omitempty" json:"version,omitempty" jsonschema:"title=Version,description=Forecast release this config targets"`

	Symbols   []string `yaml:"symbols" json:"symbols" validate:"required,min=1,dive,required" jsonschema:"title=Symbols,description=Ticker candidates tried in order until one returns data"`
	StartDate string   `yaml:"start_date" json:"start_date" validate:"required,datetime=2006-01-02" jsonschema:"title=Start Date,description=First day of the acquisition interval,default=2024-08-12"`
	EndDate   string   `yaml:"end_date" json:"end_date" validate:"required,datetime=2006-01-02" jsonschema:"title=End Date,description=Last day of the acquisition interval,default=2025-08-12"`
	RawPath   string   `yaml:"raw_path" json:"raw_path" validate:"required" jsonschema:"title=Raw Path,description=Raw provider table written by download and read by clean,default=hbl_stock_data.csv"`
	CleanPath string   `yaml:"clean_path" json:"clean_path" validate:"required" jsonschema:"title=Clean Path,description=Cleaned table written before training,default=hbl_clean_data.csv"`
	Provider  string   `yaml:"provider" json:"provider" validate:"required,oneof=yahoo polygon binance" jsonschema:"title=Provider,enum=yahoo,enum=polygon,enum=binance,default=yahoo"`
	Writer    string   `yaml:"writer" json:"writer" validate:"required,oneof=csv duckdb" jsonschema:"title=Writer,description=Raw table format,enum=csv,enum=duckdb,default=csv"`

	// PolygonApiKey is read from POLYGON_API_KEY when empty.
	PolygonApiKey string            `yaml:"polygon_api_key,omitempty" json:"polygon_api_key,omitempty" jsonschema:"title=Polygon API Key"`
	Model         forecaster.Config `yaml:"model" json:"model" jsonschema:"title=Model"`
}

// DefaultConfig returns the HBL setup: four ticker candidates over one year of daily bars.
func DefaultConfig() Config {
	return Config{
		Symbols:   []string{"HBL.KA", "HBL.PSX", "HBL", "6052.PSX"},
		StartDate: "2024-08-12",
		EndDate:   "2025-08-12",
		RawPath:   "hbl_stock_data.csv",
		CleanPath: "hbl_clean_data.csv",
		Provider:  string(marketdata.ProviderYahoo),
		Writer:    string(marketdata.WriterCSV),
		Model:     forecaster.DefaultConfig(),
	}
}

// LoadConfig overlays the YAML file at path on the defaults and validates the result.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()

	content, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(errors.ErrCodeFileNotFound, err, "failed to read config %s", path)
	}

	if err := yaml.Unmarshal(content, &config); err != nil {
		return Config{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to parse config %s", path)
	}

	if err := version.CheckConfigCompatibility(version.GetVersion(), config.Version); err != nil {
		return Config{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "config %s is incompatible", path)
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}

// Validate checks the struct tags and that the interval is not reversed.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid configuration", err)
	}

	start, end, err := c.DateRange()
	if err != nil {
		return err
	}

	if end.Before(start) {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "end date %s is before start date %s", c.EndDate, c.StartDate)
	}

	return nil
}

// DateRange parses StartDate and EndDate.
func (c Config) DateRange() (time.Time, time.Time, error) {
	start, err := time.Parse(types.DateLayout, c.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid start date", err)
	}

	end, err := time.Parse(types.DateLayout, c.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid end date", err)
	}

	return start, end, nil
}

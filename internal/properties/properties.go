package properties

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// SetDefaults registers the default of every configuration key. Values are
// overridden by the config file and by upper-case environment variables.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("root_path", ".")
	v.SetDefault("countries_path", "")
	v.SetDefault("sources_path", "")
	v.SetDefault("history_path", "")
	v.SetDefault("log_level", "info")

	v.SetDefault("buffer_km", 10)
	v.SetDefault("vegetation_source", "MOD13A1")
	v.SetDefault("temperature_source", "MOD11A1")
	v.SetDefault("vegetation_reducer", "median")
	v.SetDefault("temperature_reducer", "median")
	v.SetDefault("vegetation_weight", 0.5)
	v.SetDefault("temperature_weight", 0.5)
	v.SetDefault("thresholds", "20,40,60,80")
	v.SetDefault("min_coverage", 0.0)
	v.SetDefault("scale_min", 0.0)
	v.SetDefault("scale_max", 100.0)

	v.SetDefault("sentinel_client_ids", "")
	v.SetDefault("sentinel_client_secrets", "")
	v.SetDefault("sentinel_token_url", "https://services.sentinel-hub.com/auth/realms/main/protocol/openid-connect/token")
	v.SetDefault("sentinel_process_url", "https://services.sentinel-hub.com/api/v1/process")
	v.SetDefault("sentinel_catalog_url", "https://services.sentinel-hub.com/api/v1/catalog/1.0.0/search")

	v.SetDefault("minio_endpoint", "")
	v.SetDefault("minio_access_key", "")
	v.SetDefault("minio_secret_key", "")
	v.SetDefault("minio_bucket", "coastal-monitor")
	v.SetDefault("minio_secure", false)
}

func init() {
	SetDefaults(viper.GetViper())
	viper.AutomaticEnv()
}

func RootPath() string {
	return viper.GetString("root_path")
}

// DataPath joins elems under <root>/data.
func DataPath(elems ...string) string {
	return filepath.Join(append([]string{RootPath(), "data"}, elems...)...)
}

func ArchivePath() string {
	return DataPath("archive")
}

func OutputPath() string {
	return DataPath("output")
}

func CountriesPath() string {
	if p := viper.GetString("countries_path"); p != "" {
		return p
	}
	return DataPath("countries.geojson")
}

// SourcesPath is the optional YAML source registry; empty means built-in
// sources only.
func SourcesPath() string {
	return viper.GetString("sources_path")
}

func HistoryPath() string {
	if p := viper.GetString("history_path"); p != "" {
		return p
	}
	return DataPath("history.db")
}

func LogLevel() string {
	return viper.GetString("log_level")
}

func BufferKm() float64 {
	return viper.GetFloat64("buffer_km")
}

func VegetationSource() string {
	return viper.GetString("vegetation_source")
}

func TemperatureSource() string {
	return viper.GetString("temperature_source")
}

func VegetationReducer() string {
	return viper.GetString("vegetation_reducer")
}

func TemperatureReducer() string {
	return viper.GetString("temperature_reducer")
}

func Weights() (float64, float64) {
	return viper.GetFloat64("vegetation_weight"), viper.GetFloat64("temperature_weight")
}

// Thresholds accepts a YAML list or a comma-separated string.
func Thresholds() ([]float64, error) {
	var parts []string
	switch v := viper.Get("thresholds").(type) {
	case string:
		parts = splitList(v)
	case []any:
		for _, e := range v {
			parts = append(parts, fmt.Sprint(e))
		}
	case []float64:
		return v, nil
	default:
		return nil, fmt.Errorf("bad thresholds %v", v)
	}
	out := make([]float64, 0, len(parts))
	for _, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("bad threshold %q: %w", part, err)
		}
		out = append(out, f)
	}
	return out, nil
}

func MinCoverage() float64 {
	return viper.GetFloat64("min_coverage")
}

// Scale is the range the normalised indices are mapped onto.
func Scale() (float64, float64) {
	return viper.GetFloat64("scale_min"), viper.GetFloat64("scale_max")
}

type Credential struct {
	ClientID     string
	ClientSecret string
}

// SentinelCredentials pairs the comma-separated client ids and secrets.
func SentinelCredentials() []Credential {
	ids := splitList(viper.GetString("sentinel_client_ids"))
	secrets := splitList(viper.GetString("sentinel_client_secrets"))
	var creds []Credential
	for i := range min(len(ids), len(secrets)) {
		creds = append(creds, Credential{ClientID: ids[i], ClientSecret: secrets[i]})
	}
	return creds
}

func SentinelTokenURL() string {
	return viper.GetString("sentinel_token_url")
}

func SentinelProcessURL() string {
	return viper.GetString("sentinel_process_url")
}

func SentinelCatalogURL() string {
	return viper.GetString("sentinel_catalog_url")
}

type Minio struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Secure    bool
}

func MinioConfig() Minio {
	return Minio{
		Endpoint:  viper.GetString("minio_endpoint"),
		AccessKey: viper.GetString("minio_access_key"),
		SecretKey: viper.GetString("minio_secret_key"),
		Bucket:    viper.GetString("minio_bucket"),
		Secure:    viper.GetBool("minio_secure"),
	}
}

func DiscordErrorNotificationUrl() string {
	return viper.GetString("discord_error_notification_url")
}

func DiscordSuccessNotificationUrl() string {
	return viper.GetString("discord_success_notification_url")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

package utils

import (
	"reflect"
	"strings"

	"github.com/spf13/viper"
	"github.com/vitwit/arpay/types"
)

// EnvPrefix prefixes every environment override, e.g. ARPAY_QR_TTL or
// ARPAY_LEDGER_REDIS_ADDR.
const EnvPrefix = "ARPAY"

// LoadConfig reads a YAML, JSON or TOML file (optional) and environment
// overrides on top of types.DefaultConfig, then validates the result.
func LoadConfig(path string) (*types.Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	bindEnv(v, nil, reflect.TypeOf(types.Config{}))

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, types.NewError(types.ErrConfigError, "failed to read config %s: %v", path, err)
		}
	}

	config := types.DefaultConfig()
	if err := v.Unmarshal(config); err != nil {
		return nil, types.NewError(types.ErrConfigError, "failed to decode config: %v", err)
	}
	if err := ValidateConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

// bindEnv registers an env name for every scalar field reachable through
// mapstructure tags. Maps are only configurable from files.
func bindEnv(v *viper.Viper, path []string, t reflect.Type) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" || tag == "-" {
			continue
		}
		key := append(append([]string{}, path...), tag)
		switch f.Type.Kind() {
		case reflect.Map:
			continue
		case reflect.Struct:
			bindEnv(v, key, f.Type)
		default:
			_ = v.BindEnv(strings.Join(key, "."))
		}
	}
}

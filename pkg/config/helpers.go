package config

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/glorpus-work/deskshell/pkg/errors"
)

// SetValue sets a configuration value by its dotted key, e.g.
// "ecs.refresh_interval" or "settings.log_level". Durations use
// time.ParseDuration syntax and ecs.hosts takes a comma separated list.
func (c *Config) SetValue(key, value string) error {
	field, ok := c.lookup(key)
	if !ok {
		return errors.ErrUnknownConfigKeyWithName(key)
	}

	switch {
	case field.Type() == reflect.TypeOf(time.Duration(0)):
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration value for %s: %s", key, value)
		}
		field.SetInt(int64(d))
	case field.Kind() == reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean value for %s: %s", key, value)
		}
		field.SetBool(b)
	case field.Kind() == reflect.Int:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %s", key, value)
		}
		field.SetInt(int64(n))
	case field.Kind() == reflect.Slice:
		field.Set(reflect.ValueOf(splitList(value)))
	default:
		field.SetString(value)
	}
	return nil
}

// GetValue returns a configuration value by its dotted key.
func (c *Config) GetValue(key string) (string, error) {
	field, ok := c.lookup(key)
	if !ok {
		return "", errors.ErrUnknownConfigKeyWithName(key)
	}
	return format(field), nil
}

// Keys lists every settable key in sorted order.
func (c *Config) Keys() []string {
	keys := make([]string, 0, len(c.ToMap()))
	for k := range c.ToMap() {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ToMap flattens the configuration into dotted keys. This is useful for
// displaying the configuration.
func (c *Config) ToMap() map[string]string {
	result := make(map[string]string)
	root := reflect.ValueOf(c).Elem()
	for i := 0; i < root.NumField(); i++ {
		section := yamlKey(root.Type().Field(i))
		sv := root.Field(i)
		for j := 0; j < sv.NumField(); j++ {
			result[section+"."+yamlKey(sv.Type().Field(j))] = format(sv.Field(j))
		}
	}
	return result
}

func (c *Config) lookup(key string) (reflect.Value, bool) {
	section, name, ok := strings.Cut(key, ".")
	if !ok {
		return reflect.Value{}, false
	}
	root := reflect.ValueOf(c).Elem()
	for i := 0; i < root.NumField(); i++ {
		if yamlKey(root.Type().Field(i)) != section {
			continue
		}
		sv := root.Field(i)
		for j := 0; j < sv.NumField(); j++ {
			if yamlKey(sv.Type().Field(j)) == name {
				return sv.Field(j), true
			}
		}
	}
	return reflect.Value{}, false
}

// yamlKey handles yaml tags with options (e.g., "temp_dir,omitempty").
func yamlKey(f reflect.StructField) string {
	return strings.Split(f.Tag.Get("yaml"), ",")[0]
}

func format(v reflect.Value) string {
	switch {
	case v.Type() == reflect.TypeOf(time.Duration(0)):
		return time.Duration(v.Int()).String()
	case v.Kind() == reflect.Bool:
		return strconv.FormatBool(v.Bool())
	case v.Kind() == reflect.Int:
		return strconv.FormatInt(v.Int(), 10)
	case v.Kind() == reflect.Slice:
		return strings.Join(v.Interface().([]string), ",")
	default:
		return v.String()
	}
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

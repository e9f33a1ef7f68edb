package offsets

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strconv"

	"scmem/units"

	"github.com/go-viper/mapstructure/v2"
)

var unitTypeType = reflect.TypeOf(units.UnitType(0))

// decodeConfig maps a JSON document onto Config. Keys match without regard to case,
// offsets may be numbers or strings such as "0x1A0" and "-0x520", and unit types may
// be ids or names such as "Terran_Marine".
func decodeConfig(data []byte) (*Config, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}

	var cfg Config
	md, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			unitTypeHook,
			offsetHook,
		),
		Result: &cfg,
	})
	if err != nil {
		return nil, err
	}
	if err := md.Decode(raw); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func unitTypeHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != unitTypeType || from.Kind() != reflect.String {
		return data, nil
	}
	return units.ParseUnitType(reflect.ValueOf(data).String())
}

// offsetHook parses strings (and json.Number) bound for signed integer fields with base prefixes.
func offsetHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String {
		return data, nil
	}
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.ParseInt(reflect.ValueOf(data).String(), 0, 64)
	}
	return data, nil
}

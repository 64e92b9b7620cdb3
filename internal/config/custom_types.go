package config

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// FlexBool is a boolean that accepts YAML booleans, strings ("true", "1",
// "on") and integers, so hand-edited config files stay forgiving.
type FlexBool bool

// UnmarshalYAML implements the yaml.Unmarshaler interface for FlexBool.
func (fb *FlexBool) UnmarshalYAML(value *yaml.Node) error {
	switch value.Tag {
	case "!!bool":
		var b bool
		if err := value.Decode(&b); err != nil {
			return err
		}
		*fb = FlexBool(b)
	case "!!str":
		if value.Value == "on" || value.Value == "off" {
			*fb = FlexBool(value.Value == "on")
			return nil
		}
		b, err := strconv.ParseBool(value.Value)
		if err != nil {
			return fmt.Errorf("cannot unmarshal string %q into FlexBool", value.Value)
		}
		*fb = FlexBool(b)
	case "!!int":
		i, err := strconv.Atoi(value.Value)
		if err != nil {
			return err
		}
		*fb = FlexBool(i != 0)
	default:
		return fmt.Errorf("cannot unmarshal %s into FlexBool", value.Tag)
	}
	return nil
}

// Bool returns the plain boolean value.
func (fb FlexBool) Bool() bool { return bool(fb) }

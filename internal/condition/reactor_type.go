package condition

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ReactorType names an ideal-gas batch reactor by what it holds fixed.
type ReactorType string

const (
	ConstPressureTemperature ReactorType = "IdealGasConstPressureTemperatureReactor"
	ConstVolumeTemperature   ReactorType = "IdealGasConstVolumeTemperatureReactor"
	ConstPressure            ReactorType = "IdealGasConstPressureReactor"
	ConstVolume              ReactorType = "IdealGasReactor"
)

var reactorTypes = []ReactorType{
	ConstPressureTemperature,
	ConstVolumeTemperature,
	ConstPressure,
	ConstVolume,
}

func ReactorTypes() []ReactorType {
	out := make([]ReactorType, len(reactorTypes))
	copy(out, reactorTypes)
	return out
}

func ParseReactorType(s string) (ReactorType, error) {
	for _, r := range reactorTypes {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownReactor, s)
}

// Isothermal reports whether temperature is held at its initial value.
func (r ReactorType) Isothermal() bool {
	return r == ConstPressureTemperature || r == ConstVolumeTemperature
}

// ConstantPressure reports whether the reactor volume follows the gas at
// fixed pressure. The others hold volume fixed.
func (r ReactorType) ConstantPressure() bool {
	return r == ConstPressureTemperature || r == ConstPressure
}

func (r *ReactorType) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseReactorType(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*r = parsed
	return nil
}

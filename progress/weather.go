package progress

import (
	"fmt"
	"strings"
)

// WeatherCondition is the closed set of conditions a crew can report.
type WeatherCondition int

const (
	WeatherSunny WeatherCondition = iota + 1
	WeatherCloudy
	WeatherRainy
	WeatherHeavyRain
)

// WeatherConditions lists every condition in declaration order.
var WeatherConditions = []WeatherCondition{WeatherSunny, WeatherCloudy, WeatherRainy, WeatherHeavyRain}

func (w WeatherCondition) String() string {
	switch w {
	case WeatherSunny:
		return "sunny"
	case WeatherCloudy:
		return "cloudy"
	case WeatherRainy:
		return "rainy"
	case WeatherHeavyRain:
		return "heavy_rain"
	default:
		return fmt.Sprintf("weather(%d)", int(w))
	}
}

// IsRain reports whether the condition stops most earthwork.
func (w WeatherCondition) IsRain() bool {
	switch w {
	case WeatherRainy, WeatherHeavyRain:
		return true
	case WeatherSunny, WeatherCloudy:
		return false
	default:
		return false
	}
}

// ParseWeatherCondition accepts the canonical names, case-insensitively.
// "heavy rain" is accepted for heavy_rain.
func ParseWeatherCondition(s string) (WeatherCondition, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sunny":
		return WeatherSunny, nil
	case "cloudy":
		return WeatherCloudy, nil
	case "rainy":
		return WeatherRainy, nil
	case "heavy_rain", "heavy rain":
		return WeatherHeavyRain, nil
	default:
		return 0, fmt.Errorf("unknown weather condition %q", s)
	}
}

func (w WeatherCondition) MarshalText() ([]byte, error) {
	switch w {
	case WeatherSunny, WeatherCloudy, WeatherRainy, WeatherHeavyRain:
		return []byte(w.String()), nil
	default:
		return nil, fmt.Errorf("unknown weather condition %d", int(w))
	}
}

func (w *WeatherCondition) UnmarshalText(b []byte) error {
	parsed, err := ParseWeatherCondition(string(b))
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}

package weather

import (
	"fmt"
	"strconv"
)

// IconURLTemplate renders an icon identifier into a full image URL.
const IconURLTemplate = "https://openweathermap.org/img/wn/%s@2x.png"

const (
	defaultDayIcon   = "01d"
	defaultNightIcon = "01n"

	unknownDescriptionKey = "weather.unknown"
	unknownDescriptionPT  = "Condição desconhecida"
	unknownDescription    = "Unknown condition"
)

type iconPair struct {
	day   string
	night string
}

// WMO weather interpretation codes as reported by Open-Meteo.
var iconTable = map[int]iconPair{
	0:  {"01d", "01n"},
	1:  {"02d", "02n"},
	2:  {"03d", "03n"},
	3:  {"04d", "04n"},
	45: {"50d", "50n"},
	48: {"50d", "50n"},
	51: {"09d", "09n"},
	53: {"09d", "09n"},
	55: {"10d", "10n"},
	56: {"09d", "09n"},
	57: {"10d", "10n"},
	61: {"10d", "10n"},
	63: {"10d", "10n"},
	65: {"10d", "10n"},
	66: {"10d", "10n"},
	67: {"10d", "10n"},
	71: {"13d", "13n"},
	73: {"13d", "13n"},
	75: {"13d", "13n"},
	77: {"13d", "13n"},
	80: {"09d", "09n"},
	81: {"09d", "09n"},
	82: {"09d", "09n"},
	85: {"13d", "13n"},
	86: {"13d", "13n"},
	95: {"11d", "11n"},
	96: {"11d", "11n"},
	99: {"11d", "11n"},
}

var descriptionsPT = map[int]string{
	0:  "Céu limpo",
	1:  "Principalmente limpo",
	2:  "Parcialmente nublado",
	3:  "Nublado",
	45: "Neblina",
	48: "Neblina com geada",
	51: "Garoa leve",
	53: "Garoa moderada",
	55: "Garoa intensa",
	56: "Garoa congelante leve",
	57: "Garoa congelante intensa",
	61: "Chuva leve",
	63: "Chuva moderada",
	65: "Chuva forte",
	66: "Chuva congelante leve",
	67: "Chuva congelante forte",
	71: "Neve leve",
	73: "Neve moderada",
	75: "Neve forte",
	77: "Granizo",
	80: "Pancadas de chuva leves",
	81: "Pancadas de chuva moderadas",
	82: "Pancadas de chuva fortes",
	85: "Pancadas de neve leves",
	86: "Pancadas de neve moderadas",
	95: "Tempestade",
	96: "Tempestade com granizo leve",
	99: "Tempestade com granizo forte",
}

// Translator looks up a translated string and reports whether the key exists.
type Translator interface {
	Lookup(key string) (string, bool)
}

// KnownCode reports whether code appears in the condition table.
func KnownCode(code int) bool {
	_, ok := iconTable[code]
	return ok
}

// Icon returns the icon identifier for a condition code. Unknown codes map to the clear-sky icon.
func Icon(code int, isDay bool) string {
	pair, ok := iconTable[code]
	if !ok {
		pair = iconPair{defaultDayIcon, defaultNightIcon}
	}
	if isDay {
		return pair.day
	}
	return pair.night
}

// IconURL returns the full icon image URL for a condition code.
func IconURL(code int, isDay bool) string {
	return fmt.Sprintf(IconURLTemplate, Icon(code, isDay))
}

// NewCondition resolves the icon for a code.
func NewCondition(code int, isDay bool) Condition {
	return Condition{Code: code, Icon: Icon(code, isDay), IsDay: isDay}
}

// Description returns a human description of a condition code. With a nil
// translator the built-in Portuguese table is used.
func Description(code int, t Translator) string {
	if t == nil {
		if d, ok := descriptionsPT[code]; ok {
			return d
		}
		return unknownDescriptionPT
	}

	if d, ok := t.Lookup("weather." + strconv.Itoa(code)); ok {
		return d
	}
	if d, ok := t.Lookup(unknownDescriptionKey); ok {
		return d
	}
	return unknownDescription
}

// DescriptionString accepts the code as text; non-numeric input yields the unknown description.
func DescriptionString(code string, t Translator) string {
	n, err := strconv.Atoi(code)
	if err != nil {
		if t != nil {
			if d, ok := t.Lookup(unknownDescriptionKey); ok {
				return d
			}
			return unknownDescription
		}
		return unknownDescriptionPT
	}
	return Description(n, t)
}

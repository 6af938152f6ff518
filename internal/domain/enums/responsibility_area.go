package enums

import "fmt"

type ResponsibilityArea string

const (
	AreaHousing        ResponsibilityArea = "housing"
	AreaRoad           ResponsibilityArea = "road"
	AreaAdministration ResponsibilityArea = "administration"
	AreaLawEnforcement ResponsibilityArea = "law_enforcement"
	AreaOther          ResponsibilityArea = "other"
)

func ParseResponsibilityArea(value string) (ResponsibilityArea, error) {
	switch ResponsibilityArea(value) {
	case AreaHousing, AreaRoad, AreaAdministration, AreaLawEnforcement, AreaOther:
		return ResponsibilityArea(value), nil
	default:
		return "", fmt.Errorf("unknown responsibility area %q", value)
	}
}

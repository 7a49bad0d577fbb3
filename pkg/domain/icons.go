package domain

// Icon identifiers offered by the icon picker. The core stores icon names as
// plain strings and never checks them against this set.
const (
	IconShield   = "shield"
	IconFlame    = "flame"
	IconMedkit   = "medkit"
	IconPeople   = "people"
	IconMedical  = "medical"
	IconHome     = "home"
	IconCall     = "call"
	IconHeart    = "heart"
	IconWarning  = "warning"
	IconCar      = "car"
	IconBoat     = "boat"
	IconAirplane = "airplane"

	// IconPerson is preselected for a new contact.
	IconPerson = "person"
)

// SelectableIcons returns the icons offered by the picker, in display order.
func SelectableIcons() []string {
	return []string{
		IconShield,
		IconFlame,
		IconMedkit,
		IconPeople,
		IconMedical,
		IconHome,
		IconCall,
		IconHeart,
		IconWarning,
		IconCar,
		IconBoat,
		IconAirplane,
	}
}

// IsSelectableIcon reports whether name is offered by the picker.
func IsSelectableIcon(name string) bool {
	for _, icon := range SelectableIcons() {
		if icon == name {
			return true
		}
	}
	return false
}

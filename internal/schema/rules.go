package schema

import "njcrashes/internal/domain"

// DefaultRules lists the undocumented per-year layout drift compensated for
// out of the box. Each entry is independent; add new drift as a new rule.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:    "crash-2001-2002-no-cell-phone-flag",
			Kind:  domain.KindCrash,
			Years: YearRange{From: 2001, To: 2002},
			Patch: DropField{Name: "Cell Phone In Use Flag"},
		},
		{
			ID:    "crash-2022-police-station-widened",
			Kind:  domain.KindCrash,
			Years: YearRange{From: 2022},
			Patch: WidenField{Name: "Police Station", Extra: 2},
		},
		{
			ID:    "driver-2017-2018-license-state-trailing",
			Kind:  domain.KindDriver,
			Years: YearRange{From: 2017, To: 2018},
			Patch: RelocateField{Name: "Driver License State"},
		},
		{
			ID:    "occupant-2017-2019-no-hospital-code",
			Kind:  domain.KindOccupant,
			Years: YearRange{From: 2017, To: 2019},
			Patch: DropField{Name: "Hospital Code"},
		},
		{
			ID:    "pedestrian-2017-address-city-widened",
			Kind:  domain.KindPedestrian,
			Years: Only(2017),
			Patch: WidenField{Name: "Address City", Extra: 1},
		},
		{
			ID:    "vehicle-2012-2013-trailing-padding",
			Kind:  domain.KindVehicle,
			Years: YearRange{From: 2012, To: 2013},
			Patch: InsertPadding{Length: 2},
		},
	}
}

// DefaultRegistry returns a Registry holding DefaultRules.
func DefaultRegistry() *Registry {
	return NewRegistry(DefaultRules()...)
}

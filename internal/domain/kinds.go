package domain

// KindSpec is the data associated with each record kind: how its records are
// keyed, which free-text columns reveal the submission version, and which
// columns may be back-filled when reconciling duplicates.
type KindSpec struct {
	Kind           RecordKind
	PrimaryKey     []string
	TextFields     []string
	FillableFields []string
	LatField       string
	LonField       string
}

// HasCoordinates reports whether records of this kind carry a lat/lon pair.
func (s KindSpec) HasCoordinates() bool {
	return s.LatField != "" && s.LonField != ""
}

var crashKey = []string{"County Code", "Municipality Code", "Department Case Number"}

func withKey(extra ...string) []string {
	out := make([]string, 0, len(crashKey)+len(extra))
	out = append(out, crashKey...)
	return append(out, extra...)
}

var kindSpecs = map[RecordKind]KindSpec{
	KindCrash: {
		Kind:       KindCrash,
		PrimaryKey: withKey(),
		TextFields: []string{"Police Department", "Crash Location", "Cross Street Name"},
		FillableFields: []string{
			"Police Station",
			"Crash Location",
			"Location Direction",
			"Route",
			"SRI (Std Rte Identifier)",
			"MilePost",
			"Distance To Cross Street",
			"Unit Of Measurement",
			"Directn From Cross Street",
			"Cross Street Name",
			"Latitude",
			"Longitude",
			"Reporting Badge No.",
		},
		LatField: "Latitude",
		LonField: "Longitude",
	},
	KindDriver: {
		Kind:       KindDriver,
		PrimaryKey: withKey("Vehicle Number"),
		TextFields: []string{"Driver City", "Charge"},
		FillableFields: []string{
			"Driver City",
			"Driver State",
			"Driver Zip Code",
			"Driver License State",
			"Driver DOB",
			"Driver Sex",
			"Charge",
			"Summons",
		},
	},
	KindOccupant: {
		Kind:       KindOccupant,
		PrimaryKey: withKey("Vehicle Number", "Occupant Number"),
		FillableFields: []string{
			"Physical Condition",
			"Position In/On Vehicle",
			"Age",
			"Sex",
			"Hospital Code",
		},
	},
	KindPedestrian: {
		Kind:       KindPedestrian,
		PrimaryKey: withKey("Pedestrian Number"),
		TextFields: []string{"Address City", "Charge"},
		FillableFields: []string{
			"Address City",
			"Address State",
			"Address Zip",
			"Date Of Birth",
			"Age",
			"Sex",
			"Charge",
			"Summons",
			"Hospital Code",
		},
	},
	KindVehicle: {
		Kind:       KindVehicle,
		PrimaryKey: withKey("Vehicle Number"),
		TextFields: []string{"Make Of Vehicle", "Model Of Vehicle", "Carrier Name"},
		FillableFields: []string{
			"Owner State",
			"Make Of Vehicle",
			"Model Of Vehicle",
			"Color Of Vehicle",
			"Year Of Vehicle",
			"License Plate State",
			"Carrier Name",
		},
	},
}

// Spec returns the associated data for k. Unknown kinds yield a zero KindSpec.
func (k RecordKind) Spec() KindSpec {
	return kindSpecs[k]
}

package chart

// Role is the semantic axis a dataset is scaled against.
type Role string

const (
	RoleX          Role = "x"
	RoleY          Role = "y"
	RoleMarkerSize Role = "marker-size"
)

// Annotated is a dataset tagged with its role. Index is its position in
// the chart's dataset sequence.
type Annotated struct {
	Role  Role
	Index int
	Data  Dataset
}

type family int

const (
	familyLine family = iota
	familyBar
	familyScatter
	familyPie
	familyVenn
	familyRadar
	familyMap
	familyQR
)

// Variant is a chart kind: its type code and how it assigns roles to the
// raw datasets. The set is closed; use the package-level values.
type Variant interface {
	// Tag is the registry name, e.g. "SimpleLine".
	Tag() string
	// TypeCode is the value of the cht parameter, e.g. "lc".
	TypeCode() string
	// Annotate tags each dataset with the role it is scaled against.
	Annotate(data []Dataset) []Annotated

	family() family
	grouped() bool
}

type variant struct {
	tag      string
	code     string
	fam      family
	isGroup  bool
	annotate func([]Dataset) []Annotated
}

func (v *variant) Tag() string { return v.tag }
func (v *variant) TypeCode() string { return v.code }
func (v *variant) Annotate(data []Dataset) []Annotated { return v.annotate(data) }
func (v *variant) family() family { return v.fam }
func (v *variant) grouped() bool { return v.isGroup }
func (v *variant) String() string { return v.tag }

// allAs tags every dataset with the same role.
func allAs(role Role) func([]Dataset) []Annotated {
	return func(data []Dataset) []Annotated {
		out := make([]Annotated, len(data))
		for i, ds := range data {
			out[i] = Annotated{Role: role, Index: i, Data: ds}
		}
		return out
	}
}

// alternateXY tags even datasets x and odd datasets y.
func alternateXY(data []Dataset) []Annotated {
	out := make([]Annotated, len(data))
	for i, ds := range data {
		role := RoleY
		if i%2 == 0 {
			role = RoleX
		}
		out[i] = Annotated{Role: role, Index: i, Data: ds}
	}
	return out
}

// scatterRoles tags dataset 0 x, 1 y and the optional 2 as relative marker
// sizes. Further datasets are not part of a scatter plot and are dropped,
// whether or not the chart auto-scales.
func scatterRoles(data []Dataset) []Annotated {
	roles := []Role{RoleX, RoleY, RoleMarkerSize}
	var out []Annotated
	for i, ds := range data {
		if i >= len(roles) {
			break
		}
		out = append(out, Annotated{Role: roles[i], Index: i, Data: ds})
	}
	return out
}

// Chart kinds. Bar, radar and map charts keep the generic default of
// scaling every dataset against the x range.
var (
	SimpleLine Variant = &variant{tag: "SimpleLine", code: "lc", fam: familyLine, annotate: allAs(RoleY)}
	SparkLine  Variant = &variant{tag: "SparkLine", code: "ls", fam: familyLine, annotate: allAs(RoleY)}
	XYLine     Variant = &variant{tag: "XYLine", code: "lxy", fam: familyLine, annotate: alternateXY}
	Scatter    Variant = &variant{tag: "Scatter", code: "s", fam: familyScatter, annotate: scatterRoles}

	StackedHorizontalBar Variant = &variant{tag: "StackedHorizontalBar", code: "bhs", fam: familyBar, annotate: allAs(RoleX)}
	StackedVerticalBar   Variant = &variant{tag: "StackedVerticalBar", code: "bvs", fam: familyBar, annotate: allAs(RoleY)}
	GroupedHorizontalBar Variant = &variant{tag: "GroupedHorizontalBar", code: "bhg", fam: familyBar, isGroup: true, annotate: allAs(RoleX)}
	GroupedVerticalBar   Variant = &variant{tag: "GroupedVerticalBar", code: "bvg", fam: familyBar, isGroup: true, annotate: allAs(RoleY)}

	Pie2D        Variant = &variant{tag: "Pie2D", code: "p", fam: familyPie, annotate: allAs(RoleY)}
	Pie3D        Variant = &variant{tag: "Pie3D", code: "p3", fam: familyPie, annotate: allAs(RoleY)}
	GoogleOMeter Variant = &variant{tag: "GoogleOMeter", code: "gom", fam: familyPie, annotate: allAs(RoleY)}
	Venn         Variant = &variant{tag: "Venn", code: "v", fam: familyVenn, annotate: allAs(RoleY)}

	Radar       Variant = &variant{tag: "Radar", code: "r", fam: familyRadar, annotate: allAs(RoleX)}
	SplineRadar Variant = &variant{tag: "SplineRadar", code: "rs", fam: familyRadar, annotate: allAs(RoleX)}
	Map         Variant = &variant{tag: "Map", code: "t", fam: familyMap, annotate: allAs(RoleX)}

	// QR charts carry text instead of numeric datasets.
	QR Variant = &variant{tag: "QR", code: "qr", fam: familyQR, annotate: allAs(RoleX)}
)

// Variants returns every chart kind.
func Variants() []Variant {
	return []Variant{
		SimpleLine, SparkLine, XYLine, Scatter,
		StackedHorizontalBar, StackedVerticalBar, GroupedHorizontalBar, GroupedVerticalBar,
		Pie2D, Pie3D, GoogleOMeter, Venn,
		Radar, SplineRadar, Map, QR,
	}
}

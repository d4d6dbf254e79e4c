package retrieval

// DocumentType is the instrument type label stored in the index
// (field jenis_bentuk_peraturan).
type DocumentType string

const (
	TypeConstitution           DocumentType = "UUD"
	TypeAssemblyDecree         DocumentType = "TAP MPR"
	TypeStatute                DocumentType = "UU"
	TypeEmergencyStatute       DocumentType = "PERPPU"
	TypeGovernmentRegulation   DocumentType = "PP"
	TypePresidentialRegulation DocumentType = "PERPRES"
	TypeMinisterialRegulation  DocumentType = "PERMEN"
	TypeRegionalRegulation     DocumentType = "PERDA"
	TypeAgencyRegulation       DocumentType = "PERBAN"
)

// DefaultAuthorityWeight applies to any type outside the authority table.
const DefaultAuthorityWeight = 1.0

type authorityRow struct {
	Type   DocumentType
	Weight float64
}

// authorityTable is ordered from the highest authority down. The query
// builder emits one weight function per row in this order.
var authorityTable = []authorityRow{
	{TypeConstitution, 2.4},
	{TypeAssemblyDecree, 2.2},
	{TypeStatute, 2.0},
	{TypeEmergencyStatute, 2.0},
	{TypeGovernmentRegulation, 1.8},
	{TypePresidentialRegulation, 1.6},
	{TypeMinisterialRegulation, 1.4},
	{TypeRegionalRegulation, 1.2},
	{TypeAgencyRegulation, 1.0},
}

func (t DocumentType) AuthorityWeight() float64 {
	for _, row := range authorityTable {
		if row.Type == t {
			return row.Weight
		}
	}
	return DefaultAuthorityWeight
}

// KnownTypes returns the types that carry an explicit authority weight.
func KnownTypes() []DocumentType {
	out := make([]DocumentType, len(authorityTable))
	for i, row := range authorityTable {
		out[i] = row.Type
	}
	return out
}

package models

// Feature - типизированное имя возможности плана.
// Раньше флаг читался динамически по строке "allows_<feature>";
// теперь набор закрыт, неизвестное имя всегда дает false
type Feature string

const (
	FeatureCSVExport     Feature = "csv_export"
	FeatureCRMSync       Feature = "crm_sync"
	FeatureTeamAccess    Feature = "team_access"
	FeatureAPIAccess     Feature = "api_access"
	FeatureWhiteLabeling Feature = "white_labeling"
	FeatureEnrichment    Feature = "enrichment"
)

// AllFeatures - полный набор, в порядке отображения на витрине
var AllFeatures = []Feature{
	FeatureCSVExport,
	FeatureCRMSync,
	FeatureTeamAccess,
	FeatureAPIAccess,
	FeatureWhiteLabeling,
	FeatureEnrichment,
}

// featureLabels - человекочитаемые названия для сообщений об ошибках
var featureLabels = map[Feature]string{
	FeatureCSVExport:     "CSV export",
	FeatureCRMSync:       "CRM sync",
	FeatureTeamAccess:    "team access",
	FeatureAPIAccess:     "API access",
	FeatureWhiteLabeling: "white labeling",
	FeatureEnrichment:    "lead enrichment",
}

// Label возвращает человекочитаемое название возможности
func (f Feature) Label() string {
	if label, ok := featureLabels[f]; ok {
		return label
	}
	return string(f)
}

// Valid сообщает, входит ли имя в закрытый набор возможностей
func (f Feature) Valid() bool {
	_, ok := featureLabels[f]
	return ok
}

// Allows возвращает значение флага возможности на плане.
// Для неизвестной возможности всегда false (fail-safe)
func (p *Plan) Allows(f Feature) bool {
	switch f {
	case FeatureCSVExport:
		return p.AllowsCSVExport
	case FeatureCRMSync:
		return p.AllowsCRMSync
	case FeatureTeamAccess:
		return p.AllowsTeamAccess
	case FeatureAPIAccess:
		return p.AllowsAPIAccess
	case FeatureWhiteLabeling:
		return p.AllowsWhiteLabeling
	case FeatureEnrichment:
		return p.AllowsEnrichment
	default:
		return false
	}
}

// FeatureMap возвращает карту возможность -> флаг для текущего плана
func (p *Plan) FeatureMap() map[Feature]bool {
	result := make(map[Feature]bool, len(AllFeatures))
	for _, f := range AllFeatures {
		result[f] = p.Allows(f)
	}
	return result
}

// EmptyFeatureMap - карта со всеми false, дефолт при отсутствии подписки
func EmptyFeatureMap() map[Feature]bool {
	result := make(map[Feature]bool, len(AllFeatures))
	for _, f := range AllFeatures {
		result[f] = false
	}
	return result
}

package search

import "encoding/json"

// BaseSettings defines common index-level settings
type BaseSettings struct {
	NumberOfShards   int `json:"number_of_shards"`
	NumberOfReplicas int `json:"number_of_replicas"`
}

// DefaultSettings returns the default index settings
func DefaultSettings() BaseSettings {
	return BaseSettings{
		NumberOfShards:   1,
		NumberOfReplicas: 1,
	}
}

// Field describes one Elasticsearch field mapping
type Field struct {
	Type     string `json:"type"`
	Analyzer string `json:"analyzer,omitempty"`
	Format   string `json:"format,omitempty"`
	Index    *bool  `json:"index,omitempty"`
}

// ClusterMapping represents the Elasticsearch mapping for the cluster
// read model
type ClusterMapping struct {
	Settings ClusterSettings `json:"settings"`
	Mappings ClusterMappings `json:"mappings"`
}

// ClusterSettings defines index-level settings
type ClusterSettings struct {
	BaseSettings
}

// ClusterMappings defines the field mappings for clusters
type ClusterMappings struct {
	Properties ClusterProperties `json:"properties"`
}

// ClusterProperties defines the properties for each field in the cluster
// mapping
type ClusterProperties struct {
	ID           Field `json:"id"`
	Title        Field `json:"title"`
	Description  Field `json:"description"`
	RootCause    Field `json:"root_cause"`
	SuggestedFix Field `json:"suggested_fix"`
	AffectedArea Field `json:"affected_area"`

	TotalItems  Field `json:"total_items"`
	AvgSeverity Field `json:"avg_severity"`
	MaxSeverity Field `json:"max_severity"`
	Sources     Field `json:"sources"`
	FirstSeen   Field `json:"first_seen"`
	LastSeen    Field `json:"last_seen"`
	Trend       Field `json:"trend"`

	AggregateSeverity Field `json:"aggregate_severity"`
	Priority          Field `json:"priority"`
	Status            Field `json:"status"`
	AlertSent         Field `json:"alert_sent"`
	UpdatedAt         Field `json:"updated_at"`
}

const dateFormat = "strict_date_optional_time||epoch_millis"

// NewClusterMapping creates the cluster mapping with default settings
func NewClusterMapping() *ClusterMapping {
	return &ClusterMapping{
		Settings: ClusterSettings{
			BaseSettings: DefaultSettings(),
		},
		Mappings: ClusterMappings{
			Properties: ClusterProperties{
				ID: Field{
					Type: "keyword",
				},
				Title: Field{
					Type:     "text",
					Analyzer: "standard",
				},
				Description: Field{
					Type:     "text",
					Analyzer: "standard",
				},
				RootCause: Field{
					Type:     "text",
					Analyzer: "standard",
				},
				SuggestedFix: Field{
					Type:     "text",
					Analyzer: "standard",
				},
				AffectedArea: Field{
					Type: "keyword",
				},
				TotalItems: Field{
					Type: "integer",
				},
				AvgSeverity: Field{
					Type: "integer",
				},
				MaxSeverity: Field{
					Type: "integer",
				},
				Sources: Field{
					Type: "keyword",
				},
				FirstSeen: Field{
					Type:   "date",
					Format: dateFormat,
				},
				LastSeen: Field{
					Type:   "date",
					Format: dateFormat,
				},
				Trend: Field{
					Type: "keyword",
				},
				AggregateSeverity: Field{
					Type: "integer",
				},
				Priority: Field{
					Type: "keyword",
				},
				Status: Field{
					Type: "keyword",
				},
				AlertSent: Field{
					Type: "boolean",
				},
				UpdatedAt: Field{
					Type:   "date",
					Format: dateFormat,
				},
			},
		},
	}
}

// GetJSON returns the cluster mapping as a JSON string
func (m *ClusterMapping) GetJSON() (string, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

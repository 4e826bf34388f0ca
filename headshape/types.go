package headshape

// Point is a single digitized 3-D head-surface point in millimeters.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Cloud is an ordered sequence of digitized points. A loaded cloud is treated
// as immutable; reloading replaces it wholesale.
type Cloud []Point

// Copy returns an independent copy of the cloud.
func (c Cloud) Copy() Cloud {
	if c == nil {
		return nil
	}
	out := make(Cloud, len(c))
	copy(out, c)
	return out
}

// ResolutionConfig bounds the interactive decimation resolution and fixes the
// reference resolution. All values are integer millimeters; keying caches by
// an integer unit avoids exact-float map lookups.
type ResolutionConfig struct {
	MinMM       int `yaml:"minMM" json:"minMM"`
	MaxMM       int `yaml:"maxMM" json:"maxMM"`
	DefaultMM   int `yaml:"defaultMM" json:"defaultMM"`
	ReferenceMM int `yaml:"referenceMM" json:"referenceMM"`
}

// Contains reports whether a resolution lies inside the configured bounds.
func (rc ResolutionConfig) Contains(resolutionMM int) bool {
	return resolutionMM >= rc.MinMM && resolutionMM <= rc.MaxMM
}

// WarmRange is an inclusive resolution range to precompute on load.
type WarmRange struct {
	FromMM int `yaml:"fromMM" json:"fromMM"`
	ToMM   int `yaml:"toMM" json:"toMM"`
}

// MQTTConfig holds MQTT connection settings.
type MQTTConfig struct {
	Broker        string `yaml:"broker" json:"broker"`
	PublishPrefix string `yaml:"publishPrefix" json:"publishPrefix"`
	ClientID      string `yaml:"clientId" json:"clientId"`
	Username      string `yaml:"username,omitempty" json:"username,omitempty"`
	Password      string `yaml:"password,omitempty" json:"password,omitempty"`
}

// Config represents the full configuration file.
type Config struct {
	MQTT       MQTTConfig       `yaml:"mqtt,omitempty" json:"mqtt,omitempty"`
	Resolution ResolutionConfig `yaml:"resolution" json:"resolution"`
	Warm       *WarmRange       `yaml:"warm,omitempty" json:"warm,omitempty"`
	DataDir    string           `yaml:"dataDir,omitempty" json:"dataDir,omitempty"`
	HTTPPort   int              `yaml:"httpPort,omitempty" json:"httpPort,omitempty"`

	// DigitizerURL is an optional REST endpoint serving head-shape clouds,
	// used instead of local files when set.
	DigitizerURL string `yaml:"digitizerUrl,omitempty" json:"digitizerUrl,omitempty"`
}

// Snapshot is the derived session state handed to observers and published
// after every mutation. Rendering layers poll or subscribe to this instead of
// intercepting attribute changes.
type Snapshot struct {
	SessionID    string `json:"sessionId"`
	ResolutionMM int    `json:"resolutionMM"`
	PointCount   int    `json:"pointCount"`
	TotalPoints  int    `json:"totalPoints"`
	Excluded     []int  `json:"excluded"`
	CanPersist   bool   `json:"canPersist"`
	Timestamp    int64  `json:"timestamp"`
}

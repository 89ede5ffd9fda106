package problem

// Definition is a decoded problem file. Field tags match the CUE schema;
// optional parts are omitted from the canonical encoding when unset so the
// problem hash only depends on what the file says.
type Definition struct {
	Name string `json:"name"`
	Seed uint64 `json:"seed"`

	NumTrackSlots       int `json:"num_track_slots"`
	InitializerCapacity int `json:"initializer_capacity"`
	MaxEvents           int `json:"max_events"`
	MaxSteps            int `json:"max_steps"`
	SecondaryStackSize  int `json:"secondary_stack_size"`
	BatchSize           int `json:"batch_size"`

	Geometry    GeometryDef     `json:"geometry"`
	Physics     PhysicsDef      `json:"physics"`
	Primaries   PrimariesDef    `json:"primaries"`
	Diagnostics *DiagnosticsDef `json:"diagnostics,omitempty"`
}

// GeometryDef selects a slab or an infinite world.
type GeometryDef struct {
	Kind      string    `json:"kind"`
	HalfWidth float64   `json:"half_width,omitempty"`
	Planes    []float64 `json:"planes,omitempty"`
	Labels    []string  `json:"labels,omitempty"`
}

// PhysicsDef is the toy physics process table.
type PhysicsDef struct {
	Processes []ProcessDef       `json:"processes,omitempty"`
	DEDX      map[string]float64 `json:"dedx,omitempty"`
	Cutoffs   map[string]float64 `json:"cutoffs,omitempty"`
}

// ProcessDef binds a model to a particle label.
type ProcessDef struct {
	Particle     string  `json:"particle"`
	Model        string  `json:"model"`
	CrossSection float64 `json:"cross_section"`
}

// PrimariesDef configures the primary generator.
type PrimariesDef struct {
	Particles []string   `json:"particles"`
	NumEvents int        `json:"num_events"`
	PerEvent  int        `json:"per_event"`
	Energy    EnergyDist `json:"energy"`
	Position  VectorDist `json:"position"`
	Direction VectorDist `json:"direction"`
}

// EnergyDist is a delta or uniform energy distribution [MeV].
type EnergyDist struct {
	Kind  string  `json:"kind"`
	Value float64 `json:"value,omitempty"`
	Min   float64 `json:"min,omitempty"`
	Max   float64 `json:"max,omitempty"`
}

// VectorDist is a delta, box or isotropic distribution of 3-vectors.
type VectorDist struct {
	Kind  string    `json:"kind"`
	Value []float64 `json:"value,omitempty"`
	Min   []float64 `json:"min,omitempty"`
	Max   []float64 `json:"max,omitempty"`
}

// DiagnosticsDef enables mid-step diagnostics.
type DiagnosticsDef struct {
	Step    *StepDiagDef   `json:"step,omitempty"`
	Energy  *EnergyDiagDef `json:"energy,omitempty"`
	Process bool           `json:"process,omitempty"`
}

// StepDiagDef configures the steps-per-track histogram.
type StepDiagDef struct {
	MaxSteps int `json:"max_steps"`
}

// EnergyDiagDef configures energy deposition binning along an axis.
type EnergyDiagDef struct {
	Axis string  `json:"axis"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Bins int     `json:"bins"`
}

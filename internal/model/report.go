package model

// ModuleReport summarises the objectives registered for one instrumented file.
type ModuleReport struct {
	ModuleID   string   `yaml:"module"`
	Source     Path     `yaml:"source"`
	Artifact   Path     `yaml:"artifact"`
	Objectives []string `yaml:"objectives"`
}

// InstrumentationReport is what a run of the loader produced.
type InstrumentationReport struct {
	Units   UnitsInfo      `yaml:"units"`
	Modules []ModuleReport `yaml:"modules"`
}

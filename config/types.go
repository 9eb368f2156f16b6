package config

// ServerConfig contains server configuration
type ServerConfig struct {
	Port              int `yaml:"port" validate:"gt=0,lte=65535"`
	ShutdownTimeoutMS int `yaml:"shutdownTimeoutMS" validate:"gte=0"`
}

// ServiceConfig describes the OData service surface
type ServiceConfig struct {
	Title string `yaml:"title"`

	// Root is prefixed to every URI written into a response body.
	Root string `yaml:"root" validate:"omitempty,url"`

	// Path is the URL path the service is mounted on.
	Path string `yaml:"path" validate:"omitempty,startswith=/"`

	// ContentTypes lists the supported response types, most preferred first.
	ContentTypes []string `yaml:"contentTypes" validate:"dive,required"`

	// BundleDir holds messages_<locale>.yaml files; empty uses the built-in bundles.
	BundleDir string `yaml:"bundleDir" validate:"omitempty,dir"`
}

// PropertyConfig is a simple property of an entity type
type PropertyConfig struct {
	Name     string `yaml:"name" validate:"required"`
	Type     string `yaml:"type" validate:"required"`
	Nullable bool   `yaml:"nullable"`
}

// NavigationConfig is a navigation property of an entity type
type NavigationConfig struct {
	Name   string `yaml:"name" validate:"required"`
	Target string `yaml:"target" validate:"required"`
	Many   bool   `yaml:"many"`
}

// EntityTypeConfig declares an entity type
type EntityTypeConfig struct {
	Name       string             `yaml:"name" validate:"required"`
	Keys       []string           `yaml:"keys" validate:"required,min=1,dive,required"`
	Properties []PropertyConfig   `yaml:"properties" validate:"required,min=1,dive"`
	Navigation []NavigationConfig `yaml:"navigation" validate:"dive"`
}

// EntitySetConfig declares an entity set of a container
type EntitySetConfig struct {
	Name       string `yaml:"name" validate:"required"`
	EntityType string `yaml:"entityType" validate:"required"`
}

// ContainerConfig declares an entity container
type ContainerConfig struct {
	Name       string            `yaml:"name" validate:"required"`
	Default    bool              `yaml:"default"`
	EntitySets []EntitySetConfig `yaml:"entitySets" validate:"required,min=1,dive"`
}

// MetadataConfig is the entity data model exposed by the service
type MetadataConfig struct {
	Namespace   string             `yaml:"namespace" validate:"required"`
	EntityTypes []EntityTypeConfig `yaml:"entityTypes" validate:"required,min=1,dive"`
	Containers  []ContainerConfig  `yaml:"containers" validate:"required,min=1,dive"`
}

// DataConfig points at the rows served for each entity set
type DataConfig struct {
	// Source is a local file path or an http(s) URL of a YAML document.
	Source    string `yaml:"source"`
	TimeoutMS int    `yaml:"timeoutMS" validate:"gte=0"`
}

// LoggingConfig contains logger settings
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=trace debug info warn error fatal panic disabled"`
	Pretty bool   `yaml:"pretty"`
}

// AppConfig is the root configuration structure
type AppConfig struct {
	Server   ServerConfig   `yaml:"server" validate:"required"`
	Service  ServiceConfig  `yaml:"service"`
	Metadata MetadataConfig `yaml:"metadata" validate:"required"`
	Data     DataConfig     `yaml:"data"`
	Logging  LoggingConfig  `yaml:"logging"`
}

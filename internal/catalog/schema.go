package catalog

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Document is the top-level shape of the catalog file. It follows the
// docker-compose layout so an existing compose file can be reused as is.
type Document struct {
	Services ServiceEntries `yaml:"services" json:"services"`
}

// ServiceEntries keeps the services mapping in document order.
// Compose files are plain YAML maps, so we decode the node by hand.
type ServiceEntries []ServiceEntry

// ServiceEntry is one named service from the mapping. Err is set when the
// entry's body could not be decoded.
type ServiceEntry struct {
	Name  string
	Props ServiceProps
	Err   error
}

// ServiceProps contains the per-service fields we understand.
// Unknown compose keys (build, depends_on, networks...) are ignored.
type ServiceProps struct {
	Image       string      `yaml:"image" json:"image"`
	Description string      `yaml:"description,omitempty" json:"description,omitempty"`
	Icon        string      `yaml:"icon,omitempty" json:"icon,omitempty"`
	Environment Environment `yaml:"environment,omitempty" json:"environment,omitempty"`
	Volumes     []string    `yaml:"volumes,omitempty" json:"volumes,omitempty"`
	Ports       []string    `yaml:"ports,omitempty" json:"ports,omitempty"`
	ShmSize     string      `yaml:"shm_size,omitempty" json:"shm_size,omitempty"`
	CapAdd      []string    `yaml:"cap_add,omitempty" json:"cap_add,omitempty"`
	SecurityOpt []string    `yaml:"security_opt,omitempty" json:"security_opt,omitempty"`
	Restart     string      `yaml:"restart,omitempty" json:"restart,omitempty"`
}

// Environment accepts both compose spellings:
//
//	environment: ["KEY=value"]
//	environment: {KEY: value}
//
// Order is preserved in both cases.
type Environment []string

func (s *ServiceEntries) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: services must be a mapping", node.Line)
	}
	entries := make(ServiceEntries, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		entry := ServiceEntry{Name: key.Value}
		if value.Kind != yaml.ScalarNode || value.Tag != "!!null" {
			if err := value.Decode(&entry.Props); err != nil {
				entry = ServiceEntry{Name: key.Value, Err: fmt.Errorf("service %q: %w", key.Value, err)}
			}
		}
		entries = append(entries, entry)
	}
	*s = entries
	return nil
}

func (e *Environment) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*e = list
	case yaml.MappingNode:
		list := make([]string, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			list = append(list, node.Content[i].Value+"="+node.Content[i+1].Value)
		}
		*e = list
	case yaml.ScalarNode:
		if node.Tag != "!!null" {
			return fmt.Errorf("line %d: environment must be a list or a mapping", node.Line)
		}
		*e = nil
	default:
		return fmt.Errorf("line %d: environment must be a list or a mapping", node.Line)
	}
	return nil
}

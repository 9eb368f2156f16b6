package edm

import (
	"fmt"

	"github.com/theoremus-urban-solutions/odata-core/config"
)

// FromConfig builds a model from the metadata section of the configuration.
// Every entity type must declare its key properties and every navigation
// target must name a set of the same container.
func FromConfig(cfg config.MetadataConfig) (*Edm, error) {
	types := make(map[string]*EntityType, len(cfg.EntityTypes))
	for _, tc := range cfg.EntityTypes {
		et := &EntityType{Namespace: cfg.Namespace, Name: tc.Name}
		for _, pc := range tc.Properties {
			st, err := ParseSimpleType(pc.Type)
			if err != nil {
				return nil, fmt.Errorf("entity type %s, property %s: %w", tc.Name, pc.Name, err)
			}
			if _, dup := et.Property(pc.Name); dup {
				return nil, fmt.Errorf("entity type %s: duplicate property %q", tc.Name, pc.Name)
			}
			et.Properties = append(et.Properties, Property{Name: pc.Name, Type: st, Nullable: pc.Nullable})
		}
		for _, k := range tc.Keys {
			if _, ok := et.Property(k); !ok {
				return nil, fmt.Errorf("entity type %s: key %q is not a property", tc.Name, k)
			}
		}
		et.Keys = append([]string(nil), tc.Keys...)
		for _, nc := range tc.Navigation {
			et.Navigation = append(et.Navigation, NavigationProperty{Name: nc.Name, Target: nc.Target, Many: nc.Many})
		}
		types[tc.Name] = et
	}

	model := &Edm{}
	defaultSeen := false
	for _, cc := range cfg.Containers {
		if cc.Default && defaultSeen {
			return nil, fmt.Errorf("container %s: more than one default container", cc.Name)
		}
		defaultSeen = defaultSeen || cc.Default

		c := &EntityContainer{Name: cc.Name, IsDefault: cc.Default}
		for _, sc := range cc.EntitySets {
			et, ok := types[sc.EntityType]
			if !ok {
				return nil, fmt.Errorf("entity set %s.%s: unknown entity type %q", cc.Name, sc.Name, sc.EntityType)
			}
			if _, dup := c.EntitySet(sc.Name); dup {
				return nil, fmt.Errorf("container %s: duplicate entity set %q", cc.Name, sc.Name)
			}
			c.EntitySets = append(c.EntitySets, &EntitySet{Name: sc.Name, EntityType: et, Container: c})
		}
		model.Containers = append(model.Containers, c)
	}

	for _, c := range model.Containers {
		for _, s := range c.EntitySets {
			for _, n := range s.EntityType.Navigation {
				if _, ok := c.EntitySet(n.Target); !ok {
					return nil, fmt.Errorf("entity set %s: navigation %s targets unknown set %q",
						s.Name, n.Name, n.Target)
				}
			}
		}
	}
	return model, nil
}

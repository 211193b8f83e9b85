package workflow

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// canonicalOrder places fields the source never carried (synthesized ids,
// defaulted versions, appended inputs) at predictable positions.
var canonicalOrder = []string{"cwlVersion", "class", "id", "inputs", "outputs", "steps"}

func (d *Document) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("workflow: document must be a mapping")
	}
	for i := 0; i+1 < len(value.Content); i += 2 {
		key, val := value.Content[i].Value, value.Content[i+1]
		d.order = append(d.order, key)
		switch key {
		case "class":
			d.Class = val.Value
		case "id":
			d.ID = val.Value
		case "cwlVersion":
			d.CWLVersion = val.Value
		case "inputs":
			if err := val.Decode(&d.Inputs); err != nil {
				return fmt.Errorf("workflow: inputs: %w", err)
			}
		case "outputs":
			if err := val.Decode(&d.Outputs); err != nil {
				return fmt.Errorf("workflow: outputs: %w", err)
			}
		case "steps":
			if err := val.Decode(&d.Steps); err != nil {
				return fmt.Errorf("workflow: steps: %w", err)
			}
		default:
			d.Extra = append(d.Extra, Field{Name: key, Value: val})
		}
	}
	return nil
}

func (d *Document) MarshalYAML() (any, error) {
	out := newMapping()
	extras := make(map[string]*yaml.Node, len(d.Extra))
	for _, f := range d.Extra {
		extras[f.Name] = f.Value
	}

	emitted := make(map[string]bool)
	emit := func(key string) error {
		var val any
		switch key {
		case "class":
			if d.Class == "" {
				return nil
			}
			val = d.Class
		case "id":
			if d.ID == "" {
				return nil
			}
			val = d.ID
		case "cwlVersion":
			if d.CWLVersion == "" {
				return nil
			}
			val = d.CWLVersion
		case "inputs":
			if d.Inputs == nil {
				return nil
			}
			val = d.Inputs
		case "outputs":
			if d.Outputs == nil {
				return nil
			}
			val = d.Outputs
		case "steps":
			if d.Steps == nil {
				return nil
			}
			val = d.Steps
		default:
			if n, ok := extras[key]; ok {
				out.Content = append(out.Content, scalarNode(key), n)
			}
			return nil
		}
		return appendAny(out, key, val)
	}

	for _, key := range d.order {
		if emitted[key] {
			continue
		}
		emitted[key] = true
		if err := emit(key); err != nil {
			return nil, err
		}
	}
	for _, key := range canonicalOrder {
		if emitted[key] {
			continue
		}
		emitted[key] = true
		if err := emit(key); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (p *InputParam) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("workflow: input parameter must be a mapping")
	}
	for i := 0; i+1 < len(value.Content); i += 2 {
		key, val := value.Content[i].Value, value.Content[i+1]
		switch key {
		case "id":
			p.ID = val.Value
		case "type":
			if err := val.Decode(&p.Type); err != nil {
				return fmt.Errorf("workflow: input %q: type: %w", p.ID, err)
			}
		case "default":
			if err := val.Decode(&p.Default); err != nil {
				return fmt.Errorf("workflow: input %q: default: %w", p.ID, err)
			}
		default:
			p.Extra = append(p.Extra, Field{Name: key, Value: val})
		}
	}
	if p.ID == "" {
		return fmt.Errorf("workflow: input parameter missing id")
	}
	return nil
}

func (p *InputParam) MarshalYAML() (any, error) {
	out := newMapping()
	appendScalar(out, "id", p.ID)
	if p.Type != nil {
		if err := appendAny(out, "type", p.Type); err != nil {
			return nil, err
		}
	}
	if p.Default != nil {
		if err := appendAny(out, "default", p.Default); err != nil {
			return nil, err
		}
	}
	appendFields(out, p.Extra)
	return out, nil
}

func (p *OutputParam) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("workflow: output parameter must be a mapping")
	}
	for i := 0; i+1 < len(value.Content); i += 2 {
		key, val := value.Content[i].Value, value.Content[i+1]
		switch key {
		case "id":
			p.ID = val.Value
		case "type":
			if err := val.Decode(&p.Type); err != nil {
				return fmt.Errorf("workflow: output %q: type: %w", p.ID, err)
			}
		case "outputSource":
			p.OutputSource = &SourceList{}
			if err := val.Decode(p.OutputSource); err != nil {
				return fmt.Errorf("workflow: output %q: outputSource: %w", p.ID, err)
			}
		default:
			p.Extra = append(p.Extra, Field{Name: key, Value: val})
		}
	}
	if p.ID == "" {
		return fmt.Errorf("workflow: output parameter missing id")
	}
	return nil
}

func (p *OutputParam) MarshalYAML() (any, error) {
	out := newMapping()
	appendScalar(out, "id", p.ID)
	if p.Type != nil {
		if err := appendAny(out, "type", p.Type); err != nil {
			return nil, err
		}
	}
	if p.OutputSource != nil {
		if err := appendAny(out, "outputSource", p.OutputSource); err != nil {
			return nil, err
		}
	}
	appendFields(out, p.Extra)
	return out, nil
}

func (s *Step) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("workflow: step must be a mapping")
	}
	for i := 0; i+1 < len(value.Content); i += 2 {
		key, val := value.Content[i].Value, value.Content[i+1]
		switch key {
		case "id":
			s.ID = val.Value
		case "in":
			if err := val.Decode(&s.In); err != nil {
				return fmt.Errorf("workflow: step %q: in: %w", s.ID, err)
			}
		case "out":
			if err := val.Decode(&s.Out); err != nil {
				return fmt.Errorf("workflow: step %q: out: %w", s.ID, err)
			}
		case "run":
			if err := val.Decode(&s.Run); err != nil {
				return fmt.Errorf("workflow: step %q: run: %w", s.ID, err)
			}
		default:
			s.Extra = append(s.Extra, Field{Name: key, Value: val})
		}
	}
	if s.ID == "" {
		return fmt.Errorf("workflow: step missing id")
	}
	return nil
}

func (s *Step) MarshalYAML() (any, error) {
	out := newMapping()
	appendScalar(out, "id", s.ID)
	if s.In != nil {
		if err := appendAny(out, "in", s.In); err != nil {
			return nil, err
		}
	}
	if s.Out != nil {
		if err := appendAny(out, "out", s.Out); err != nil {
			return nil, err
		}
	}
	if !s.Run.IsZero() {
		if err := appendAny(out, "run", &s.Run); err != nil {
			return nil, err
		}
	}
	appendFields(out, s.Extra)
	return out, nil
}

func (in *StepInput) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("workflow: step input port must be a mapping")
	}
	for i := 0; i+1 < len(value.Content); i += 2 {
		key, val := value.Content[i].Value, value.Content[i+1]
		switch key {
		case "id":
			in.ID = val.Value
		case "source":
			in.Source = &SourceList{}
			if err := val.Decode(in.Source); err != nil {
				return fmt.Errorf("workflow: port %q: source: %w", in.ID, err)
			}
		case "linkMerge":
			in.LinkMerge = val.Value
		case "default":
			if err := val.Decode(&in.Default); err != nil {
				return fmt.Errorf("workflow: port %q: default: %w", in.ID, err)
			}
		default:
			in.Extra = append(in.Extra, Field{Name: key, Value: val})
		}
	}
	if in.ID == "" {
		return fmt.Errorf("workflow: step input port missing id")
	}
	return nil
}

func (in *StepInput) MarshalYAML() (any, error) {
	out := newMapping()
	appendScalar(out, "id", in.ID)
	if in.Source != nil {
		if err := appendAny(out, "source", in.Source); err != nil {
			return nil, err
		}
	}
	if in.LinkMerge != "" {
		appendScalar(out, "linkMerge", in.LinkMerge)
	}
	if in.Default != nil {
		if err := appendAny(out, "default", in.Default); err != nil {
			return nil, err
		}
	}
	appendFields(out, in.Extra)
	return out, nil
}

func (o *StepOutput) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		o.ID = value.Value
	case yaml.MappingNode:
		o.record = true
		for i := 0; i+1 < len(value.Content); i += 2 {
			key, val := value.Content[i].Value, value.Content[i+1]
			if key == "id" {
				o.ID = val.Value
				continue
			}
			o.Extra = append(o.Extra, Field{Name: key, Value: val})
		}
		if o.ID == "" {
			return fmt.Errorf("workflow: step output record missing id")
		}
	default:
		return fmt.Errorf("workflow: step output must be an identifier or a record")
	}
	return nil
}

func (o StepOutput) MarshalYAML() (any, error) {
	if !o.record && len(o.Extra) == 0 {
		return o.ID, nil
	}
	out := newMapping()
	appendScalar(out, "id", o.ID)
	appendFields(out, o.Extra)
	return out, nil
}

func (s *SourceList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		s.IDs = []string{value.Value}
		s.Scalar = true
	case yaml.SequenceNode:
		s.IDs = []string{}
		for _, c := range value.Content {
			if c.Kind != yaml.ScalarNode {
				return fmt.Errorf("workflow: source entries must be identifiers")
			}
			s.IDs = append(s.IDs, c.Value)
		}
	default:
		return fmt.Errorf("workflow: source must be an identifier or a list of identifiers")
	}
	return nil
}

func (s *SourceList) MarshalYAML() (any, error) {
	if s.Scalar && len(s.IDs) == 1 {
		return s.IDs[0], nil
	}
	return s.IDs, nil
}

func (r *Run) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		r.Ref = value.Value
	case yaml.MappingNode:
		r.Embedded = &Document{}
		if err := value.Decode(r.Embedded); err != nil {
			return fmt.Errorf("workflow: embedded run: %w", err)
		}
	default:
		return fmt.Errorf("workflow: run must be a reference or an embedded process")
	}
	return nil
}

func (r *Run) MarshalYAML() (any, error) {
	switch {
	case r.Ref != "":
		return r.Ref, nil
	case r.Embedded != nil:
		return r.Embedded, nil
	case r.Live != nil:
		return r.Live.Doc, nil
	}
	return nil, nil
}

// ─── node helpers ─────────────────────────────────────────────────────────────

func newMapping() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}

func scalarNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func appendScalar(m *yaml.Node, key, value string) {
	m.Content = append(m.Content, scalarNode(key), scalarNode(value))
}

func appendAny(m *yaml.Node, key string, value any) error {
	vn := &yaml.Node{}
	if err := vn.Encode(value); err != nil {
		return fmt.Errorf("workflow: encode %s: %w", key, err)
	}
	m.Content = append(m.Content, scalarNode(key), vn)
	return nil
}

func appendFields(m *yaml.Node, fields []Field) {
	for _, f := range fields {
		m.Content = append(m.Content, scalarNode(f.Name), f.Value)
	}
}

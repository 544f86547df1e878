package registry

import (
	"encoding/json"

	"github.com/invopop/jsonschema"

	"github.com/extbind/extbind/dispatch"
)

// Manifest is the serializable description of a module's exported
// surface: every function, class and constant with its parameter
// schema. It feeds host-side tooling that inspects a module without
// loading it.
type Manifest struct {
	Module  string       `json:"module"`
	Doc     string       `json:"doc,omitempty"`
	Export  string       `json:"export"`
	Methods []MethodInfo `json:"methods,omitempty"`
	Classes []ClassInfo  `json:"classes,omitempty"`
	Attrs   []AttrInfo   `json:"attrs,omitempty"`
}

// ParamInfo describes one declared parameter.
type ParamInfo struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Optional bool   `json:"optional,omitempty"`
}

// MethodInfo describes one exported callable.
type MethodInfo struct {
	Name        string      `json:"name"`
	Doc         string      `json:"doc,omitempty"`
	Params      []ParamInfo `json:"params,omitempty"`
	Static      bool        `json:"static,omitempty"`
	ClassMethod bool        `json:"classmethod,omitempty"`
}

// ClassInfo describes one exported class.
type ClassInfo struct {
	Name        string       `json:"name"`
	Doc         string       `json:"doc,omitempty"`
	Constructor []ParamInfo  `json:"constructor,omitempty"`
	Methods     []MethodInfo `json:"methods,omitempty"`
	Callable    bool         `json:"callable,omitempty"`
}

// AttrInfo describes one module constant.
type AttrInfo struct {
	Name  string `json:"name"`
	Value any    `json:"value,omitempty"`
}

func paramInfos(params []dispatch.Param) []ParamInfo {
	if len(params) == 0 {
		return nil
	}
	out := make([]ParamInfo, len(params))
	for i, p := range params {
		out[i] = ParamInfo{Name: p.Name, Type: p.Type.String(), Optional: p.Optional}
	}
	return out
}

func methodInfo(d *dispatch.MethodDescriptor) MethodInfo {
	return MethodInfo{
		Name:        d.Name,
		Doc:         d.Doc,
		Params:      paramInfos(d.Params),
		Static:      d.Static,
		ClassMethod: d.ClassMethod,
	}
}

// Manifest builds the manifest for this descriptor.
func (m *ModuleDescriptor) Manifest() Manifest {
	out := Manifest{
		Module: m.Name,
		Doc:    m.Doc,
		Export: m.ExportName(),
	}
	for _, d := range m.Methods {
		out.Methods = append(out.Methods, methodInfo(d))
	}
	for _, c := range m.Classes {
		ci := ClassInfo{
			Name:     c.Name,
			Doc:      c.Doc,
			Callable: c.Call != nil,
		}
		if c.Init != nil {
			ci.Constructor = paramInfos(c.Init.Params)
		}
		for _, d := range c.Methods {
			ci.Methods = append(ci.Methods, methodInfo(d))
		}
		out.Classes = append(out.Classes, ci)
	}
	for _, a := range m.Attrs {
		out.Attrs = append(out.Attrs, AttrInfo{Name: a.Name, Value: a.Value})
	}
	return out
}

// ManifestJSON renders the manifest as indented JSON.
func (m *ModuleDescriptor) ManifestJSON() ([]byte, error) {
	return json.MarshalIndent(m.Manifest(), "", "  ")
}

// ManifestSchema returns the JSON schema of the manifest document.
func ManifestSchema() ([]byte, error) {
	reflector := &jsonschema.Reflector{
		ExpandedStruct: true,
		DoNotReference: false,
	}
	schema := reflector.Reflect(&Manifest{})
	return json.MarshalIndent(schema, "", "  ")
}

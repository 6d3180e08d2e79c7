package client

import (
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// SDMX-ML 2.1 structure message, reduced to the parts the catalog reads.
// Elements are matched by local name, so the mes/str/com prefixes used by
// different providers do not matter.
type xmlStructureMessage struct {
	XMLName        xml.Name              `xml:"Structure"`
	Dataflows      []xmlDataflow         `xml:"Structures>Dataflows>Dataflow"`
	Codelists      []xmlCodelist         `xml:"Structures>Codelists>Codelist"`
	ConceptSchemes []xmlConceptScheme    `xml:"Structures>Concepts>ConceptScheme"`
	DataStructures []xmlDataStructure    `xml:"Structures>DataStructures>DataStructure"`
	Constraints    []xmlContentConstrain `xml:"Structures>Constraints>ContentConstraint"`
}

type xmlText struct {
	Lang  string `xml:"lang,attr"`
	Value string `xml:",chardata"`
}

type xmlRef struct {
	ID                   string `xml:"id,attr"`
	AgencyID             string `xml:"agencyID,attr"`
	Version              string `xml:"version,attr"`
	MaintainableParentID string `xml:"maintainableParentID,attr"`
}

type xmlDataflow struct {
	ID        string    `xml:"id,attr"`
	AgencyID  string    `xml:"agencyID,attr"`
	Version   string    `xml:"version,attr"`
	Names     []xmlText `xml:"Name"`
	Structure xmlRef    `xml:"Structure>Ref"`
}

type xmlCodelist struct {
	ID           string    `xml:"id,attr"`
	AgencyID     string    `xml:"agencyID,attr"`
	Version      string    `xml:"version,attr"`
	Names        []xmlText `xml:"Name"`
	Descriptions []xmlText `xml:"Description"`
	Codes        []xmlCode `xml:"Code"`
}

type xmlCode struct {
	ID    string    `xml:"id,attr"`
	Names []xmlText `xml:"Name"`
}

type xmlConceptScheme struct {
	ID       string       `xml:"id,attr"`
	Concepts []xmlConcept `xml:"Concept"`
}

type xmlConcept struct {
	ID          string    `xml:"id,attr"`
	Names       []xmlText `xml:"Name"`
	Enumeration *xmlRef   `xml:"CoreRepresentation>Enumeration>Ref"`
}

type xmlDataStructure struct {
	ID             string         `xml:"id,attr"`
	AgencyID       string         `xml:"agencyID,attr"`
	Version        string         `xml:"version,attr"`
	Dimensions     []xmlDimension `xml:"DataStructureComponents>DimensionList>Dimension"`
	TimeDimensions []xmlDimension `xml:"DataStructureComponents>DimensionList>TimeDimension"`
	Attributes     []xmlAttribute `xml:"DataStructureComponents>AttributeList>Attribute"`
}

type xmlDimension struct {
	ID          string  `xml:"id,attr"`
	Position    string  `xml:"position,attr"`
	Concept     xmlRef  `xml:"ConceptIdentity>Ref"`
	Enumeration *xmlRef `xml:"LocalRepresentation>Enumeration>Ref"`
}

type xmlAttribute struct {
	ID           string                `xml:"id,attr"`
	Concept      xmlRef                `xml:"ConceptIdentity>Ref"`
	Relationship xmlAttributeRelations `xml:"AttributeRelationship"`
}

type xmlAttributeRelations struct {
	None             *struct{} `xml:"None"`
	Dimensions       []xmlRef  `xml:"Dimension>Ref"`
	Groups           []xmlRef  `xml:"Group>Ref"`
	AttachmentGroups []xmlRef  `xml:"AttachmentGroup>Ref"`
	PrimaryMeasure   *xmlRef   `xml:"PrimaryMeasure>Ref"`
}

type xmlContentConstrain struct {
	ID          string          `xml:"id,attr"`
	Dataflows   []xmlRef        `xml:"ConstraintAttachment>Dataflow>Ref"`
	CubeRegions []xmlCubeRegion `xml:"CubeRegion"`
}

type xmlCubeRegion struct {
	Include   string        `xml:"include,attr"`
	KeyValues []xmlKeyValue `xml:"KeyValue"`
}

type xmlKeyValue struct {
	ID     string   `xml:"id,attr"`
	Values []string `xml:"Value"`
}

func decodeStructureMessage(r io.Reader) (*xmlStructureMessage, error) {
	var msg xmlStructureMessage
	if err := xml.NewDecoder(r).Decode(&msg); err != nil {
		return nil, fmt.Errorf("%w: decode structure message: %v", ErrRemoteMetadata, err)
	}
	return &msg, nil
}

// ParseDataflows decodes the dataflow list of an SDMX-ML structure message.
func ParseDataflows(r io.Reader) ([]Dataflow, error) {
	msg, err := decodeStructureMessage(r)
	if err != nil {
		return nil, err
	}

	flows := make([]Dataflow, 0, len(msg.Dataflows))
	for _, df := range msg.Dataflows {
		flows = append(flows, Dataflow{
			ID:          df.ID,
			Name:        localized(df.Names),
			AgencyID:    df.AgencyID,
			Version:     df.Version,
			StructureID: df.Structure.ID,
		})
	}
	return flows, nil
}

// ParseStructure decodes an SDMX-ML structure message returned for a
// dataflow query with references and resolves the structure of dataflowID.
//
// A missing or empty content constraint is not an error; the returned
// Structure then has a nil Constraint.
func ParseStructure(r io.Reader, dataflowID string) (*Structure, error) {
	msg, err := decodeStructureMessage(r)
	if err != nil {
		return nil, err
	}

	var flow *xmlDataflow
	for i := range msg.Dataflows {
		if msg.Dataflows[i].ID == dataflowID {
			flow = &msg.Dataflows[i]
			break
		}
	}
	if flow == nil {
		return nil, fmt.Errorf("%w: dataflow %s not in structure message", ErrRemoteMetadata, dataflowID)
	}

	dsd := msg.dataStructure(flow.Structure)
	if dsd == nil {
		return nil, fmt.Errorf("%w: dataflow %s has no data structure definition", ErrRemoteMetadata, dataflowID)
	}

	st := &Structure{
		DataflowID:  flow.ID,
		Name:        localized(flow.Names),
		StructureID: dsd.ID,
	}

	add := func(d xmlDimension, time bool, index int) {
		pos, err := strconv.Atoi(d.Position)
		if err != nil || pos <= 0 {
			pos = index + 1
		}
		concept := msg.concept(d.Concept)

		dim := Dimension{ID: d.ID, Position: pos, Time: time, Name: d.ID}
		if concept != nil && localized(concept.Names) != "" {
			dim.Name = localized(concept.Names)
		}

		enum := d.Enumeration
		if enum == nil && concept != nil {
			enum = concept.Enumeration
		}
		if enum != nil && !time {
			if cl := msg.codelist(*enum); cl != nil {
				dim.Codes = make([]Code, 0, len(cl.Codes))
				for _, c := range cl.Codes {
					dim.Codes = append(dim.Codes, Code{ID: c.ID, Label: localized(c.Names)})
				}
				if dim.Name == d.ID {
					if descr := localized(cl.Descriptions); descr != "" {
						dim.Name = descr
					} else if name := localized(cl.Names); name != "" {
						dim.Name = name
					}
				}
			}
		}
		st.Dimensions = append(st.Dimensions, dim)
	}
	for i, d := range dsd.Dimensions {
		add(d, false, i)
	}
	for i, d := range dsd.TimeDimensions {
		add(d, true, len(dsd.Dimensions)+i)
	}
	sort.SliceStable(st.Dimensions, func(i, j int) bool {
		return st.Dimensions[i].Position < st.Dimensions[j].Position
	})

	for _, a := range dsd.Attributes {
		attr := Attribute{ID: a.ID, Name: a.ID, Level: a.Relationship.level()}
		if concept := msg.concept(a.Concept); concept != nil && localized(concept.Names) != "" {
			attr.Name = localized(concept.Names)
		}
		st.Attributes = append(st.Attributes, attr)
	}

	st.Constraint = msg.constraint(flow.ID)
	return st, nil
}

func (m *xmlStructureMessage) dataStructure(ref xmlRef) *xmlDataStructure {
	var byID *xmlDataStructure
	for i := range m.DataStructures {
		ds := &m.DataStructures[i]
		if ds.ID != ref.ID {
			continue
		}
		if (ref.AgencyID == "" || ds.AgencyID == ref.AgencyID) && (ref.Version == "" || ds.Version == ref.Version) {
			return ds
		}
		if byID == nil {
			byID = ds
		}
	}
	return byID
}

func (m *xmlStructureMessage) codelist(ref xmlRef) *xmlCodelist {
	var byID *xmlCodelist
	for i := range m.Codelists {
		cl := &m.Codelists[i]
		if cl.ID != ref.ID {
			continue
		}
		if (ref.AgencyID == "" || cl.AgencyID == ref.AgencyID) && (ref.Version == "" || cl.Version == ref.Version) {
			return cl
		}
		if byID == nil {
			byID = cl
		}
	}
	return byID
}

func (m *xmlStructureMessage) concept(ref xmlRef) *xmlConcept {
	if ref.ID == "" {
		return nil
	}
	var byID *xmlConcept
	for i := range m.ConceptSchemes {
		scheme := &m.ConceptSchemes[i]
		for j := range scheme.Concepts {
			c := &scheme.Concepts[j]
			if c.ID != ref.ID {
				continue
			}
			if ref.MaintainableParentID == "" || scheme.ID == ref.MaintainableParentID {
				return c
			}
			if byID == nil {
				byID = c
			}
		}
	}
	return byID
}

// constraint returns the include cube region of the first content
// constraint attached to dataflowID, or nil.
func (m *xmlStructureMessage) constraint(dataflowID string) map[string][]string {
	for _, cc := range m.Constraints {
		attached := false
		for _, ref := range cc.Dataflows {
			if ref.ID == dataflowID {
				attached = true
				break
			}
		}
		if !attached {
			continue
		}
		for _, region := range cc.CubeRegions {
			if region.Include == "false" || len(region.KeyValues) == 0 {
				continue
			}
			allowed := make(map[string][]string, len(region.KeyValues))
			for _, kv := range region.KeyValues {
				allowed[kv.ID] = append(allowed[kv.ID], kv.Values...)
			}
			return allowed
		}
	}
	return nil
}

func (r xmlAttributeRelations) level() AttachmentLevel {
	switch {
	case r.PrimaryMeasure != nil:
		return AttachObservation
	case len(r.Groups) > 0 || len(r.AttachmentGroups) > 0:
		return AttachGroup
	case len(r.Dimensions) > 0:
		return AttachSeries
	default:
		return AttachDataset
	}
}

// localized picks the English text, falling back to the first one.
func localized(texts []xmlText) string {
	for _, t := range texts {
		if t.Lang == "en" {
			return t.Value
		}
	}
	if len(texts) > 0 {
		return texts[0].Value
	}
	return ""
}

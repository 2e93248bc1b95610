package chi

import (
	"errors"

	"github.com/kailas-cloud/recordops"
	"github.com/kailas-cloud/recordops/internal/domain"
	domcol "github.com/kailas-cloud/recordops/internal/domain/collection"
	healthuc "github.com/kailas-cloud/recordops/internal/usecase/health"
)

type listResponse[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

type nestedFieldResponse struct {
	Field     string `json:"field"`
	Container string `json:"container"`
}

type fieldResponse struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type collectionResponse struct {
	Name     string                `json:"name"`
	Index    string                `json:"index"`
	IDField  string                `json:"id_field"`
	Nested   []nestedFieldResponse `json:"nested,omitempty"`
	Literals map[string]any        `json:"literals,omitempty"`
	Required []string              `json:"required,omitempty"`
	Fields   []fieldResponse       `json:"fields,omitempty"`
}

type invalidRecord struct {
	Index  int                 `json:"index"`
	Error  string              `json:"error"`
	Fields []domain.FieldError `json:"fields,omitempty"`
	Input  recordops.Record    `json:"input"`
}

type queryResponse struct {
	Total   int                `json:"total"`
	Records []recordops.Record `json:"records"`
	Invalid []invalidRecord    `json:"invalid"`
	Pages   recordops.Pages    `json:"pages"`
}

type saveRequest struct {
	Records []recordops.Record `json:"records"`
}

type removeRequest struct {
	IDs []string `json:"ids"`
}

type removeResponse struct {
	Total int `json:"total"`
}

type healthResponse struct {
	Status string                          `json:"status"`
	Checks map[string]healthuc.CheckResult `json:"checks"`
}

func collectionToResponse(c domcol.Collection) collectionResponse {
	resp := collectionResponse{
		Name:     c.Name(),
		Index:    c.Index(),
		IDField:  c.IDField(),
		Literals: c.Literals(),
		Required: c.Required(),
	}
	for _, n := range c.Nesting() {
		resp.Nested = append(resp.Nested, nestedFieldResponse{Field: n.Field, Container: n.ContainerKey()})
	}
	for _, f := range c.Fields() {
		resp.Fields = append(resp.Fields, fieldResponse{Name: f.Name(), Type: string(f.FieldType())})
	}
	return resp
}

func pageToResponse(p *recordops.Page[recordops.Record]) queryResponse {
	resp := queryResponse{
		Total:   p.Total,
		Records: p.Records,
		Invalid: []invalidRecord{},
		Pages:   p.Pages,
	}
	if resp.Records == nil {
		resp.Records = []recordops.Record{}
	}
	for i, pr := range p.Parsed {
		if pr.Success {
			continue
		}
		inv := invalidRecord{Index: i, Error: pr.Err.Error(), Input: pr.Input}
		var ve *domain.ValidationError
		if errors.As(pr.Err, &ve) {
			inv.Fields = ve.Fields
		}
		resp.Invalid = append(resp.Invalid, inv)
	}
	return resp
}

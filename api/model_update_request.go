package api

// UpdateRequest carries a set of field changes to push back to a single
// gateway or tap linker.
type UpdateRequest struct {
	updatePath string
	values     map[string]interface{}
}

func (r *UpdateRequest) UpdatePath() string {
	return r.updatePath
}

func (r *UpdateRequest) Values() map[string]interface{} {
	return r.values
}

type UpdateRequestBuilder struct {
	basePath   string
	identifier string
	values     map[string]interface{}
}

func NewUpdateRequestBuilder() *UpdateRequestBuilder {
	return &UpdateRequestBuilder{values: make(map[string]interface{})}
}

func (b *UpdateRequestBuilder) WithBasePath(basePath string) *UpdateRequestBuilder {
	b.basePath = basePath
	return b
}

func (b *UpdateRequestBuilder) WithIdentifier(identifier string) *UpdateRequestBuilder {
	b.identifier = identifier
	return b
}

func (b *UpdateRequestBuilder) WithAdditionalValue(field string, value interface{}) *UpdateRequestBuilder {
	b.values[field] = value
	return b
}

// Build returns the request. The builder's value map is copied so the builder
// can keep being used.
func (b *UpdateRequestBuilder) Build() *UpdateRequest {
	values := make(map[string]interface{}, len(b.values))
	for k, v := range b.values {
		values[k] = v
	}
	return &UpdateRequest{
		updatePath: b.basePath + b.identifier,
		values:     values,
	}
}

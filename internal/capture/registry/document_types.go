package registry

import "veridoc/internal/capture/models"

// DocumentTypeRegistry is an immutable registry of recognized document
// categories, looked up by value.
type DocumentTypeRegistry struct {
	byValue map[string]models.DocumentTypeDescriptor
	ordered []models.DocumentTypeDescriptor
}

// NewDocumentTypeRegistry copies the descriptors into a registry preserving
// declaration order for listing.
func NewDocumentTypeRegistry(descriptors []models.DocumentTypeDescriptor) *DocumentTypeRegistry {
	r := &DocumentTypeRegistry{
		byValue: make(map[string]models.DocumentTypeDescriptor, len(descriptors)),
		ordered: append([]models.DocumentTypeDescriptor(nil), descriptors...),
	}
	for _, d := range descriptors {
		r.byValue[d.Value] = d
	}
	return r
}

// Lookup returns the descriptor for a document-type value.
func (r *DocumentTypeRegistry) Lookup(value string) (models.DocumentTypeDescriptor, bool) {
	d, ok := r.byValue[value]
	return d, ok
}

// List returns the descriptors in declaration order.
func (r *DocumentTypeRegistry) List() []models.DocumentTypeDescriptor {
	return append([]models.DocumentTypeDescriptor(nil), r.ordered...)
}

// DefaultDocumentTypes returns the production document categories and their
// side requirements.
func DefaultDocumentTypes() *DocumentTypeRegistry {
	return NewDocumentTypeRegistry([]models.DocumentTypeDescriptor{
		{Value: "passport", Label: "Passport", RequiresBack: false},
		{Value: "driver_license", Label: "Driver's License", RequiresBack: true},
		{Value: "id_card", Label: "ID Card", RequiresBack: true},
		{Value: "utility_bill", Label: "Utility Bill", RequiresBack: false},
		{Value: "bank_statement", Label: "Bank Statement", RequiresBack: false},
		{Value: "proof_of_address", Label: "Proof of Address", RequiresBack: false},
	})
}

// Package transport defines the crm module's request and response payloads.
package transport

import "travel_quote_backend/internal/travelapi"

// SearchClientsRequest filters the client list.
type SearchClientsRequest struct {
	Surname string `form:"surname"`
	Email   string `form:"email" validate:"omitempty,email"`
	Phone   string `form:"phone"`
	ID      int64  `form:"id" validate:"omitempty,gt=0"`
	Page    int    `form:"page" validate:"omitempty,min=1"`
	PerPage int    `form:"perPage" validate:"omitempty,min=1,max=100"`
}

// ContactRequest is one contact channel group.
type ContactRequest struct {
	Name  string   `json:"name"`
	Email []string `json:"email" validate:"omitempty,dive,email"`
	Phone []string `json:"phone"`
}

// UpsertClientRequest creates or updates a client.
type UpsertClientRequest struct {
	Name        string           `json:"name" validate:"required"`
	Surname     string           `json:"surname"`
	ProfileType string           `json:"profileType" validate:"omitempty,oneof=private company"`
	Language    string           `json:"language" validate:"omitempty,len=2"`
	Contacts    []ContactRequest `json:"contacts" validate:"omitempty,dive"`
}

// ToClient maps the request onto the wire type.
func (r UpsertClientRequest) ToClient() travelapi.Client {
	client := travelapi.Client{
		Name:        r.Name,
		Surname:     r.Surname,
		ProfileType: r.ProfileType,
		Language:    r.Language,
	}
	for _, c := range r.Contacts {
		client.Contacts = append(client.Contacts, travelapi.ClientContact{
			Name:  c.Name,
			Email: c.Email,
			Phone: c.Phone,
		})
	}
	return client
}

// ClientResponse is one master-data client.
type ClientResponse struct {
	ID          int64             `json:"id"`
	Name        string            `json:"name"`
	Surname     string            `json:"surname,omitempty"`
	ProfileType string            `json:"profileType,omitempty"`
	Language    string            `json:"language,omitempty"`
	Contacts    []ContactResponse `json:"contacts"`
}

// ContactResponse is one contact channel group.
type ContactResponse struct {
	Name  string   `json:"name,omitempty"`
	Email []string `json:"email"`
	Phone []string `json:"phone"`
}

// ClientPageResponse is one page of clients.
type ClientPageResponse struct {
	Items   []ClientResponse `json:"items"`
	Total   int              `json:"total"`
	Page    int              `json:"page"`
	PerPage int              `json:"perPage"`
}

// NewClientResponse maps a wire client.
func NewClientResponse(c travelapi.Client) ClientResponse {
	resp := ClientResponse{
		ID:          c.ID,
		Name:        c.Name,
		Surname:     c.Surname,
		ProfileType: c.ProfileType,
		Language:    c.Language,
		Contacts:    []ContactResponse{},
	}
	for _, contact := range c.Contacts {
		resp.Contacts = append(resp.Contacts, ContactResponse{
			Name:  contact.Name,
			Email: contact.Email,
			Phone: contact.Phone,
		})
	}
	return resp
}

// NewClientPageResponse maps a page of wire clients.
func NewClientPageResponse(page travelapi.ClientPage) ClientPageResponse {
	resp := ClientPageResponse{
		Items:   make([]ClientResponse, 0, len(page.Items)),
		Total:   page.Total,
		Page:    page.Page,
		PerPage: page.PerPage,
	}
	for _, c := range page.Items {
		resp.Items = append(resp.Items, NewClientResponse(c))
	}
	return resp
}

package mockapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"travel_quote_backend/internal/travelapi"
)

// SearchClients filters the seeded clients with the same filter fields
// the live master-data endpoint supports.
func (s *Server) SearchClients(_ context.Context, q travelapi.ClientQuery) (travelapi.ClientPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	results := make([]travelapi.Client, 0, len(s.clients))
	for _, c := range s.clients {
		if matchesFilters(c, q.Filters) {
			results = append(results, c)
		}
	}

	page := q.Page
	if page < 1 {
		page = 1
	}
	perPage := q.PerPage
	if perPage < 1 {
		perPage = 20
	}

	start := (page - 1) * perPage
	if start > len(results) {
		start = len(results)
	}
	end := start + perPage
	if end > len(results) {
		end = len(results)
	}

	return travelapi.ClientPage{
		Items:   results[start:end],
		Total:   len(results),
		Page:    page,
		PerPage: perPage,
	}, nil
}

// GetClient retrieves a seeded client by id.
func (s *Server) GetClient(_ context.Context, id int64) (travelapi.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.clients {
		if c.ID == id {
			return c, nil
		}
	}
	return travelapi.Client{}, reject(http.StatusNotFound, "Client not found")
}

// CreateClient adds a client with the next synthetic id.
func (s *Server) CreateClient(_ context.Context, client travelapi.Client) (travelapi.Client, error) {
	if client.Name == "" {
		return travelapi.Client{}, reject(http.StatusBadRequest, "Validation error: name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	client.ID = s.nextClientID
	s.nextClientID++
	if len(client.Profiles) == 0 {
		client.Profiles = []string{"customer"}
	}
	if client.ProfileType == "" {
		client.ProfileType = "private"
	}
	s.clients = append(s.clients, client)
	return client, nil
}

// UpdateClient replaces fields on an existing client.
func (s *Server) UpdateClient(_ context.Context, id int64, client travelapi.Client) (travelapi.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.clients {
		if existing.ID != id {
			continue
		}
		updated := existing
		if client.Name != "" {
			updated.Name = client.Name
		}
		if client.Surname != "" {
			updated.Surname = client.Surname
		}
		if client.Language != "" {
			updated.Language = client.Language
		}
		if len(client.Contacts) > 0 {
			updated.Contacts = client.Contacts
		}
		s.clients[i] = updated
		return updated, nil
	}
	return travelapi.Client{}, reject(http.StatusNotFound, "Client not found")
}

func matchesFilters(c travelapi.Client, filters []travelapi.ClientFilter) bool {
	for _, f := range filters {
		if !matchesFilter(c, f) {
			return false
		}
	}
	return true
}

func matchesFilter(c travelapi.Client, f travelapi.ClientFilter) bool {
	operator := strings.ToLower(f.Operator)
	if operator == "" {
		operator = "like"
	}
	needle := strings.ToLower(f.Value)
	if operator == "like" {
		needle = strings.Trim(needle, "%")
	}

	switch f.Field {
	case "surname":
		return matchString(c.Surname, needle, operator)
	case "id":
		return matchString(strconv.FormatInt(c.ID, 10), needle, operator)
	case "contacts.email":
		for _, contact := range c.Contacts {
			for _, email := range contact.Email {
				if matchString(email, needle, operator) {
					return true
				}
			}
		}
		return false
	default:
		return true
	}
}

func matchString(value, needle, operator string) bool {
	value = strings.ToLower(value)
	if operator == "like" {
		return strings.Contains(value, needle)
	}
	return value == needle
}

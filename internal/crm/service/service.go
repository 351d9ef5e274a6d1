// Package service implements master-data client lookups against the
// remote booking API.
package service

import (
	"context"
	"strconv"
	"strings"

	"travel_quote_backend/internal/activity"
	"travel_quote_backend/internal/travelapi"
	"travel_quote_backend/platform/logger"
	"travel_quote_backend/platform/phone"
)

// Query selects clients. Phone is matched locally: the remote filter
// grammar has no phone field, so the page is fetched and narrowed here.
type Query struct {
	Surname string
	Email   string
	Phone   string
	ID      int64
	Page    int
	PerPage int
}

// phoneFilterPageSize is the remote page fetched before local phone
// narrowing, so a match beyond the requested page size is still found.
const phoneFilterPageSize = 100

// Service wraps the remote master-data endpoints.
type Service struct {
	api travelapi.API
	rec activity.Recorder
	log *logger.Logger
}

// New creates a crm service.
func New(api travelapi.API, rec activity.Recorder, log *logger.Logger) *Service {
	return &Service{api: api, rec: rec, log: log}
}

// Search looks up clients by the supported filter fields. A phone query
// narrows paging to a single fixed fetch (page 1, phoneFilterPageSize
// items) before local filtering; the returned Page and PerPage describe
// that fetch, not the requested paging.
func (s *Service) Search(ctx context.Context, q Query) (travelapi.ClientPage, error) {
	remote := travelapi.ClientQuery{Page: q.Page, PerPage: q.PerPage}
	if q.Surname != "" {
		remote.Filters = append(remote.Filters, travelapi.ClientFilter{
			Field: "surname", Operator: "like", Value: "%" + q.Surname + "%",
		})
	}
	if q.Email != "" {
		remote.Filters = append(remote.Filters, travelapi.ClientFilter{
			Field: "contacts.email", Operator: "like", Value: "%" + q.Email + "%",
		})
	}
	if q.ID > 0 {
		remote.Filters = append(remote.Filters, travelapi.ClientFilter{
			Field: "id", Operator: "eq", Value: strconv.FormatInt(q.ID, 10),
		})
	}
	if q.Phone != "" {
		remote.Page = 1
		remote.PerPage = phoneFilterPageSize
	}

	page, err := s.api.SearchClients(ctx, remote)
	s.rec.Record(ctx, "crm.search", "GET", "/rest/master-data", err)
	if err != nil {
		return travelapi.ClientPage{}, err
	}

	if q.Phone != "" {
		page = filterByPhone(page, q.Phone)
	}
	return page, nil
}

// Get retrieves one client by id.
func (s *Service) Get(ctx context.Context, id int64) (travelapi.Client, error) {
	client, err := s.api.GetClient(ctx, id)
	s.rec.Record(ctx, "crm.get", "GET", "/rest/master-data/"+strconv.FormatInt(id, 10), err)
	return client, err
}

// Create stores a new client. Phone numbers are normalized to E.164
// before they reach the remote.
func (s *Service) Create(ctx context.Context, client travelapi.Client) (travelapi.Client, error) {
	normalizeContacts(client.Contacts)
	created, err := s.api.CreateClient(ctx, client)
	s.rec.Record(ctx, "crm.create", "POST", "/rest/master-data", err)
	return created, err
}

// Update replaces fields on an existing client.
func (s *Service) Update(ctx context.Context, id int64, client travelapi.Client) (travelapi.Client, error) {
	normalizeContacts(client.Contacts)
	updated, err := s.api.UpdateClient(ctx, id, client)
	s.rec.Record(ctx, "crm.update", "PUT", "/rest/master-data/"+strconv.FormatInt(id, 10), err)
	return updated, err
}

// filterByPhone keeps clients with a stored number containing the
// query's digits, so "347 1234567", "+39 347 1234567" and "3471234567"
// all find each other.
func filterByPhone(page travelapi.ClientPage, query string) travelapi.ClientPage {
	needle := phone.Digits(query)
	if needle == "" {
		return page
	}

	var items []travelapi.Client
	for _, c := range page.Items {
		if clientHasPhone(c, needle) {
			items = append(items, c)
		}
	}
	if items == nil {
		items = []travelapi.Client{}
	}

	page.Items = items
	page.Total = len(items)
	return page
}

func clientHasPhone(c travelapi.Client, needle string) bool {
	for _, contact := range c.Contacts {
		for _, number := range contact.Phone {
			if strings.Contains(phone.Digits(number), needle) {
				return true
			}
		}
	}
	return false
}

func normalizeContacts(contacts []travelapi.ClientContact) {
	for i := range contacts {
		for j, number := range contacts[i].Phone {
			contacts[i].Phone[j] = phone.NormalizeE164(number)
		}
	}
}

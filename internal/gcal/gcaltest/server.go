// Package gcaltest provides a fake Google Calendar API server for tests. It
// implements the subset of the v3 surface this service consumes: calendarList
// list/get and events list/get, with numeric page tokens.
package gcaltest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"google.golang.org/api/calendar/v3"
)

// Server is a fake Google Calendar API server.
type Server struct {
	*httptest.Server
	mu        sync.RWMutex
	calendars map[string]*calendar.CalendarListEntry
	events    map[string]map[string]*calendar.Event // calendarID -> eventID -> event
}

// NewServer starts a fake server. Callers must Close it.
func NewServer() *Server {
	s := &Server{
		calendars: make(map[string]*calendar.CalendarListEntry),
		events:    make(map[string]map[string]*calendar.Event),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRequest)

	s.Server = httptest.NewServer(mux)
	return s
}

// AddCalendar registers a calendar in the fake calendar list.
func (s *Server) AddCalendar(id, summary, color string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calendars[id] = &calendar.CalendarListEntry{Id: id, Summary: summary, BackgroundColor: color}
	if s.events[id] == nil {
		s.events[id] = make(map[string]*calendar.Event)
	}
}

// AddEvent registers a timed event. Recurrence id may be empty.
func (s *Server) AddEvent(calendarID, id, summary string, start, end time.Time, recurrenceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.events[calendarID] == nil {
		s.events[calendarID] = make(map[string]*calendar.Event)
	}
	s.events[calendarID][id] = &calendar.Event{
		Id:               id,
		Summary:          summary,
		Status:           "confirmed",
		HtmlLink:         fmt.Sprintf("https://calendar.google.com/event?eid=%s", id),
		RecurringEventId: recurrenceID,
		Start:            &calendar.EventDateTime{DateTime: start.Format(time.RFC3339)},
		End:              &calendar.EventDateTime{DateTime: end.Format(time.RFC3339)},
	}
}

// RemoveEvent deletes an event, simulating upstream removal.
func (s *Server) RemoveEvent(calendarID, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.events[calendarID], id)
}

func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	if idx := strings.Index(path, "/users/me/calendarList"); idx != -1 {
		rest := strings.Trim(path[idx+len("/users/me/calendarList"):], "/")
		if rest == "" {
			s.listCalendars(w, r)
		} else {
			s.getCalendar(w, rest)
		}
		return
	}

	idx := strings.Index(path, "/calendars/")
	if idx == -1 {
		http.Error(w, "unsupported endpoint", http.StatusNotFound)
		return
	}
	parts := strings.Split(strings.Trim(path[idx+len("/calendars/"):], "/"), "/")
	if len(parts) < 2 || parts[1] != "events" {
		http.Error(w, "unsupported resource", http.StatusNotImplemented)
		return
	}

	calendarID := parts[0]
	switch len(parts) {
	case 2:
		s.listEvents(w, r, calendarID)
	case 3:
		s.getEvent(w, calendarID, parts[2])
	default:
		http.Error(w, "invalid path", http.StatusBadRequest)
	}
}

func (s *Server) listCalendars(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]*calendar.CalendarListEntry, 0, len(s.calendars))
	for _, c := range s.calendars {
		items = append(items, c)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Id < items[j].Id })

	writeJSON(w, &calendar.CalendarList{Items: items})
}

func (s *Server) getCalendar(w http.ResponseWriter, id string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.calendars[id]
	if !ok {
		writeAPIError(w, http.StatusNotFound, "calendar not found")
		return
	}
	writeJSON(w, entry)
}

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request, calendarID string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byID, ok := s.events[calendarID]
	if !ok {
		writeAPIError(w, http.StatusNotFound, "calendar not found")
		return
	}

	query := r.URL.Query()
	var timeMin time.Time
	if raw := query.Get("timeMin"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeAPIError(w, http.StatusBadRequest, "invalid timeMin")
			return
		}
		timeMin = parsed
	}

	items := make([]*calendar.Event, 0, len(byID))
	for _, ev := range byID {
		if !timeMin.IsZero() && eventEnd(ev).Before(timeMin) {
			continue
		}
		items = append(items, ev)
	}
	sort.Slice(items, func(i, j int) bool {
		si, sj := eventStart(items[i]), eventStart(items[j])
		if si.Equal(sj) {
			return items[i].Id < items[j].Id
		}
		return si.Before(sj)
	})

	offset := 0
	if raw := query.Get("pageToken"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeAPIError(w, http.StatusBadRequest, "invalid pageToken")
			return
		}
		offset = parsed
	}
	if offset > len(items) {
		offset = len(items)
	}
	items = items[offset:]

	maxResults := 250
	if raw := query.Get("maxResults"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			maxResults = parsed
		}
	}

	nextToken := ""
	if len(items) > maxResults {
		items = items[:maxResults]
		nextToken = strconv.Itoa(offset + maxResults)
	}

	writeJSON(w, &calendar.Events{Items: items, NextPageToken: nextToken})
}

func (s *Server) getEvent(w http.ResponseWriter, calendarID, eventID string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ev, ok := s.events[calendarID][eventID]
	if !ok {
		writeAPIError(w, http.StatusNotFound, "event not found")
		return
	}
	writeJSON(w, ev)
}

func eventStart(ev *calendar.Event) time.Time {
	if ev.Start != nil && ev.Start.DateTime != "" {
		t, _ := time.Parse(time.RFC3339, ev.Start.DateTime)
		return t
	}
	return time.Time{}
}

func eventEnd(ev *calendar.Event) time.Time {
	if ev.End != nil && ev.End.DateTime != "" {
		t, _ := time.Parse(time.RFC3339, ev.End.DateTime)
		return t
	}
	return time.Time{}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// writeAPIError mimics the error body shape the real API produces, so the
// client library surfaces a *googleapi.Error with the right code.
func writeAPIError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{
			"code":    status,
			"message": message,
		},
	})
}

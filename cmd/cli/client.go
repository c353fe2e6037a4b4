package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yourorg/hrmslite/internal/handler"
)

// apiClient talks to the HRMS Lite HTTP API
type apiClient struct {
	base string
	http *http.Client
}

func newAPIClient(base string) *apiClient {
	return &apiClient{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: 15 * time.Second},
	}
}

// apiError is a non-2xx response
type apiError struct {
	Status int
	Body   handler.ErrorResponse
}

func (e *apiError) Error() string {
	if len(e.Body.Errors) == 0 {
		return fmt.Sprintf("%s (HTTP %d)", e.Body.Message, e.Status)
	}
	parts := make([]string, 0, len(e.Body.Errors))
	for _, f := range e.Body.Errors {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return fmt.Sprintf("%s (HTTP %d): %s", e.Body.Message, e.Status, strings.Join(parts, "; "))
}

func (c *apiClient) do(method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &apiError{Status: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr.Body); err != nil || apiErr.Body.Message == "" {
			apiErr.Body.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *apiClient) listEmployees() ([]handler.EmployeeResponse, error) {
	var out []handler.EmployeeResponse
	return out, c.do(http.MethodGet, "/employees", nil, &out)
}

func (c *apiClient) getEmployee(id string) (*handler.EmployeeResponse, error) {
	var out handler.EmployeeResponse
	if err := c.do(http.MethodGet, "/employees/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) createEmployee(req handler.EmployeeRequest) (*handler.EmployeeResponse, error) {
	var out handler.EmployeeResponse
	if err := c.do(http.MethodPost, "/employees", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) deleteEmployee(id string) (string, error) {
	var out handler.MessageResponse
	err := c.do(http.MethodDelete, "/employees/"+url.PathEscape(id), nil, &out)
	return out.Message, err
}

func (c *apiClient) listAttendance(employeeID, startDate, endDate string) ([]handler.AttendanceResponse, error) {
	q := url.Values{}
	if employeeID != "" {
		q.Set("employeeId", employeeID)
	}
	if startDate != "" {
		q.Set("startDate", startDate)
	}
	if endDate != "" {
		q.Set("endDate", endDate)
	}
	path := "/attendance"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out []handler.AttendanceResponse
	return out, c.do(http.MethodGet, path, nil, &out)
}

func (c *apiClient) markAttendance(req handler.AttendanceRequest) (*handler.AttendanceResponse, error) {
	var out handler.AttendanceResponse
	if err := c.do(http.MethodPost, "/attendance", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) getAttendance(id string) (*handler.AttendanceResponse, error) {
	var out handler.AttendanceResponse
	if err := c.do(http.MethodGet, "/attendance/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) deleteAttendance(id string) (string, error) {
	var out handler.MessageResponse
	err := c.do(http.MethodDelete, "/attendance/"+url.PathEscape(id), nil, &out)
	return out.Message, err
}

func (c *apiClient) summary(employeeID string) (*handler.SummaryResponse, error) {
	var out handler.SummaryResponse
	if err := c.do(http.MethodGet, "/employees/"+url.PathEscape(employeeID)+"/attendance/summary", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

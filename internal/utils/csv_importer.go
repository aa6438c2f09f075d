package utils

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ArowuTest/recyclehub-backend/internal/models"
	"github.com/ArowuTest/recyclehub-backend/internal/repositories"
	"golang.org/x/crypto/bcrypt"
)

// ImportResult summarizes a collector import
type ImportResult struct {
	TotalRows int      `json:"totalRows"`
	Created   int      `json:"created"`
	Skipped   int      `json:"skipped"`
	Errors    []string `json:"errors"`
	// GeneratedPasswords maps email to the password generated for rows without one
	GeneratedPasswords map[string]string `json:"-"`
}

// CollectorImporter creates collector accounts from a CSV file
type CollectorImporter struct {
	userRepo repositories.UserRepository
	dryRun   bool
	maxRows  int
}

// NewCollectorImporter creates a new CollectorImporter
func NewCollectorImporter(userRepo repositories.UserRepository) *CollectorImporter {
	return &CollectorImporter{userRepo: userRepo}
}

// WithDryRun validates rows and counts what would be created without writing anything
func (i *CollectorImporter) WithDryRun(dryRun bool) *CollectorImporter {
	i.dryRun = dryRun
	return i
}

// WithMaxRows stops the import after n data rows. Zero or less means no limit.
func (i *CollectorImporter) WithMaxRows(n int) *CollectorImporter {
	i.maxRows = n
	return i
}

// ImportCollectors reads one collector per row. Columns are matched by header
// name; Email is required. Existing accounts are skipped, never overwritten.
func (i *CollectorImporter) ImportCollectors(ctx context.Context, r io.Reader) (*ImportResult, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	emailIdx := findColumnIndex(header, []string{"Email", "E-mail", "Mail"})
	if emailIdx == -1 {
		return nil, fmt.Errorf("email column not found in CSV")
	}
	passwordIdx := findColumnIndex(header, []string{"Password"})
	firstIdx := findColumnIndex(header, []string{"First Name", "FirstName", "Prenom"})
	lastIdx := findColumnIndex(header, []string{"Last Name", "LastName", "Nom"})
	streetIdx := findColumnIndex(header, []string{"Street", "Address"})
	cityIdx := findColumnIndex(header, []string{"City", "Ville"})
	postalIdx := findColumnIndex(header, []string{"Postal Code", "PostalCode", "Zip"})
	phoneIdx := findColumnIndex(header, []string{"Phone", "Phone Number", "PhoneNumber"})
	dobIdx := findColumnIndex(header, []string{"Date of Birth", "DateOfBirth", "Birth Date"})

	result := &ImportResult{Errors: []string{}, GeneratedPasswords: map[string]string{}}

	for {
		if i.maxRows > 0 && result.TotalRows >= i.maxRows {
			break
		}
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		result.TotalRows++
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", result.TotalRows, err))
			continue
		}

		email := models.NormalizeEmail(column(row, emailIdx))
		if email == "" || !strings.Contains(email, "@") {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: invalid email %q", result.TotalRows, column(row, emailIdx)))
			continue
		}

		if _, err := i.userRepo.FindByEmail(ctx, email); err == nil {
			result.Skipped++
			continue
		} else if !errors.Is(err, repositories.ErrNotFound) {
			return result, fmt.Errorf("row %d: failed to look up %s: %w", result.TotalRows, email, err)
		}

		if i.dryRun {
			result.Created++
			continue
		}

		password := column(row, passwordIdx)
		if password == "" {
			password, err = GenerateRandomString(12)
			if err != nil {
				return result, fmt.Errorf("failed to generate password: %w", err)
			}
			result.GeneratedPasswords[email] = password
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return result, fmt.Errorf("failed to hash password: %w", err)
		}

		user := &models.User{
			Email:     email,
			Password:  string(hash),
			FirstName: column(row, firstIdx),
			LastName:  column(row, lastIdx),
			Address: models.Address{
				Street:     column(row, streetIdx),
				City:       column(row, cityIdx),
				PostalCode: column(row, postalIdx),
			},
			PhoneNumber: column(row, phoneIdx),
			Role:        models.RoleCollector,
		}
		if raw := column(row, dobIdx); raw != "" {
			dob, err := parseDate(raw)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", result.TotalRows, err))
			} else {
				user.DateOfBirth = dob
			}
		}

		if err := i.userRepo.Create(ctx, user); err != nil {
			if errors.Is(err, repositories.ErrDuplicate) {
				result.Skipped++
				continue
			}
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: failed to create collector: %v", result.TotalRows, err))
			continue
		}
		result.Created++
	}

	return result, nil
}

func column(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func findColumnIndex(header []string, possibleNames []string) int {
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		for _, name := range possibleNames {
			if strings.ToLower(name) == h {
				return i
			}
		}
	}
	return -1
}

func parseDate(dateStr string) (time.Time, error) {
	dateStr = strings.TrimSpace(dateStr)

	formats := []string{
		"2006-01-02",
		"02/01/2006",
		time.RFC3339,
	}
	for _, format := range formats {
		date, err := time.Parse(format, dateStr)
		if err == nil {
			return date, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse date: %s", dateStr)
}

package api

import (
	"fmt"
	"net/mail"
)

// Validation rejects malformed requests before any delivery attempt is
// made. Errors are collected per field rather than failing on the first
// problem.

func validAddress(addr string) bool {
	_, err := mail.ParseAddress(addr)
	return err == nil
}

func validateSend(p *sendPayload) []string {
	var errs []string
	if p.From == "" {
		errs = append(errs, "from is required")
	} else if !validAddress(p.From) {
		errs = append(errs, "from is not a valid email address")
	}
	if len(p.To) == 0 {
		errs = append(errs, "to is required")
	}
	for i, addr := range p.To {
		if !validAddress(addr) {
			errs = append(errs, fmt.Sprintf("to[%d] is not a valid email address", i))
		}
	}
	if p.Subject == "" {
		errs = append(errs, "subject is required")
	}
	if p.Text == "" && p.HTML == "" {
		errs = append(errs, "either text or html body is required")
	}
	return errs
}

func validateBulk(p *bulkPayload) []string {
	var errs []string
	if p.From == "" {
		errs = append(errs, "from is required")
	} else if !validAddress(p.From) {
		errs = append(errs, "from is not a valid email address")
	}
	if p.Subject == "" {
		errs = append(errs, "subject is required")
	}
	if p.Template == "" {
		errs = append(errs, "template is required")
	}
	if len(p.Recipients) == 0 {
		errs = append(errs, "recipients is required")
	}
	for i, r := range p.Recipients {
		if r.Email == "" {
			errs = append(errs, fmt.Sprintf("recipients[%d].email is required", i))
		} else if !validAddress(r.Email) {
			errs = append(errs, fmt.Sprintf("recipients[%d].email is not a valid email address", i))
		}
	}
	return errs
}

func validateReport(p *reportPayload) []string {
	var errs []string
	if p.ReportType == "" {
		errs = append(errs, "reportType is required")
	}
	if p.Cluster == "" {
		errs = append(errs, "cluster is required")
	}
	if len(p.Recipients) == 0 {
		errs = append(errs, "recipients is required")
	}
	for i, addr := range p.Recipients {
		if !validAddress(addr) {
			errs = append(errs, fmt.Sprintf("recipients[%d] is not a valid email address", i))
		}
	}
	if p.From != "" && !validAddress(p.From) {
		errs = append(errs, "from is not a valid email address")
	}
	if len(p.Data.Metrics) == 0 {
		errs = append(errs, "data.metrics is required")
	}
	return errs
}

package notify

import (
	"bytes"
	"fmt"
	"text/template"
)

const (
	subjectHeader         = "FCC BDC Subscriber File - Column Header Error"
	subjectDataValidation = "Your FCC BDC Subscriber File Failed to Complete Processing due to Errors; Action Requested ({{.ISP}})"
	subjectGeocoding      = "Subscriber File Processing - Geocoding Issues"
	subjectRowErrors      = "Subscriber File Processing - Row Errors ({{.ISP}})"
	subjectSystem         = "Subscriber File Processing Error"
	subjectSuccess        = "FCC BDC Subscriber File Successfully Processed ({{.ISP}})"
	subjectAdminSummary   = "Subscriber Processing Results - Org {{.ISP}}, Period {{.Period}}"
	subjectUpstream       = "Upstream Validation Results - Org {{.ISP}}, Period {{.Period}}"
	subjectEmergency      = "WARNING: Email Config Error - validate-subscription"
)

const bodyHeader = `Dear {{.Name}},

Thank you for uploading your subscriber file to Regulatory Solutions for FCC BDC processing.

Your file could not be processed because its column headers do not match the subscriber template.
{{- if .Problem}}

Problem found: {{.Problem}}
{{- end}}

The file must contain exactly these 12 columns:
{{range .Columns}}  • {{.}}
{{end}}
Common Issues:
  • Extra or missing columns
  • Misspelled column names
  • Blank columns left at the end of the sheet
  • Header row not on the first line

What to do next:
  1. Open the attached file
  2. Correct the column headers to match the list above
  3. Save the file in CSV format
  4. Re-upload the corrected file

The subscriber template is available at:
{{.InstructionsURL}}

If you need assistance, please contact RSI at {{.SupportPhone}}.

Best regards,
{{.Signature}}`

const bodyDataValidation = `Dear {{.Name}},

Thank you for uploading your subscriber file to Regulatory Solutions for FCC BDC processing.

Initial review of the file suggests the file needs a little help. The attached file is your original subscriber file, partially corrected, with cells color-coded:

  • Green cells have been automatically corrected to match USPS standards
  • Red and Pink cells need manual correction
  • Yellow cells should be reviewed and corrected if needed

To complete processing:
  1. Open the attached file
  2. Correct the Red and Pink cells
  3. Review the Yellow cells
  4. Save the file in CSV format
  5. Re-upload the corrected file

If the file passes inspection, you will receive an email with a complete validation report.

Detailed field requirements are available at:
{{.InstructionsURL}}

Thanks for taking care of this.
If you need help, please contact RSI at {{.SupportPhone}}.

Best regards,
{{.Signature}}`

const bodyGeocoding = `Dear {{.Name}}, 
Your subscriber file passed validation but we encountered geocoding errors for some addresses:

{{.Report}}
These addresses could not be geocoded and may need manual coordinate entry. The rest of your file has been processed successfully.

Best Regards,

{{.Signature}}`

const bodyRowErrors = `Dear {{.Name}}, 
Your subscriber file was processed but some rows could not be used:

{{.Report}}
The rows listed above were left out of your filing. The rest of your file has been processed successfully.
{{- if .HasAttachments}} The attached workbook highlights each affected cell.{{end}}

Best regards,
{{.Signature}}`

const bodySystem = `Dear {{.Name}},

We encountered a technical issue while processing your subscriber file that prevented validation from completing.

This is typically due to file format issues such as:
- Missing required columns
- Incorrect file structure
- File encoding problems

Please verify your file follows the subscriber template format and re-upload, or contact our support team for assistance.

For your convenience, detailed field requirements are available at:
{{.InstructionsURL}}

Best regards,
{{.Signature}}`

const bodySuccess = `Dear {{.Name}},

Thank you for submitting your subscriber file to Regulatory Solutions for FCC BDC processing.

We are pleased to inform you that your subscriber file has been successfully processed and validated. Your data has been geocoded, validated against census tract boundaries, and prepared for FCC submission.
{{- if .HasAttachments}}

Attached is your Validation Report ({{.ISP}}_VR.xlsx), which contains:
  • A summary of the corrections applied to your file
  • Subscriber counts by technology and speed tier
  • Any addresses that were standardized during processing

We recommend updating your source database with the corrected values so future filings need fewer corrections.
{{- end}}

Please review the report before the filing deadline and let us know if anything looks wrong.

Thank you for your business.

Best regards,
{{.Signature}}`

const bodyAdminSummary = `Subscriber file processing completed{{if .Complete}} successfully{{end}} for Org {{.ISP}}.

File Status: {{.StatusLine}}
Period: {{.Period}}
Final Status: {{.Status}}
Total Rows Processed: {{.Rows}}
Rejected Rows: {{.Rejected}}
Geocoding Errors: {{.GeocodingErrors}}
Tolerance: {{.Band}}
VoIP Lines Included: {{if .Voice}}Yes{{else}}No{{end}}

Output Files Created:
{{range .Files}}  - {{.Name}} ({{.Size}} bytes)
{{else}}  (none)
{{end}}
Output Directory: {{.OutputDir}}
Database Table: {{.Table}}

Processing completed at: {{.CompletedAt}}

All files are attached for manual inspection.`

const bodyUpstream = `Upstream validation {{if eq .Verdict "valid"}}completed successfully{{else}}finished{{end}} for Org {{.ISP}}, Period {{.Period}}.

File Status: {{.StatusLine}}
Return Code: {{.ExitCode}}
Processed File: {{.File}}
{{- if .Reason}}
Reason: {{.Reason}}
{{- end}}
{{- if .ShowOutput}}

{{.Rule}}
STDOUT
{{.Rule}}
{{.Stdout}}
{{.Rule}}
STDERR
{{.Rule}}
{{.Stderr}}
{{- end}}`

const bodyEmergency = `WARNING: Email Configuration Error

The email configuration file could not be loaded:
File: {{.File}}
Error: {{.Error}}

Fallback action taken: Email WAS SENT to {{.Recipient}} using hard-coded defaults.

Context:
{{.Context}}

Please fix the email settings file so notifications use the intended addresses.`

var templates = map[string]*template.Template{}

func init() {
	for name, text := range map[string]string{
		"subject_header":          subjectHeader,
		"subject_data_validation": subjectDataValidation,
		"subject_geocoding":       subjectGeocoding,
		"subject_row_errors":      subjectRowErrors,
		"subject_system":          subjectSystem,
		"subject_success":         subjectSuccess,
		"subject_admin_summary":   subjectAdminSummary,
		"subject_upstream":        subjectUpstream,
		"subject_emergency":       subjectEmergency,
		"header":                  bodyHeader,
		"data_validation":         bodyDataValidation,
		"geocoding":               bodyGeocoding,
		"row_errors":              bodyRowErrors,
		"system":                  bodySystem,
		"success":                 bodySuccess,
		"admin_summary":           bodyAdminSummary,
		"upstream":                bodyUpstream,
		"emergency":               bodyEmergency,
	} {
		templates[name] = template.Must(template.New(name).Parse(text))
	}
}

func render(name string, data any) (string, error) {
	t, ok := templates[name]
	if !ok {
		return "", fmt.Errorf("unknown template %q", name)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

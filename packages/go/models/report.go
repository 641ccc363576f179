package models

import (
	"time"
)

// ObjectInfo is the listing metadata of a stored object
type ObjectInfo struct {
	Key          string    `json:"key"`
	LastModified time.Time `json:"last_modified"`
	Size         int64     `json:"size"`
}

// ReportKeys are the object keys touched when publishing one period
type ReportKeys struct {
	SourcePrefix string `json:"prefix"`
	DestPrefix   string `json:"dest_prefix"`
	DestHTMLKey  string `json:"dest_html_key"`
	DestPDFKey   string `json:"dest_pdf_key"`
}

// NewReportKeys derives the source prefix and destination keys for a period.
// Format: {base}/{year}/{month}/{file}
func NewReportKeys(p Period, srcBase, destBase, htmlName, pdfName string) ReportKeys {
	destPrefix := p.Prefix(destBase)
	return ReportKeys{
		SourcePrefix: p.Prefix(srcBase),
		DestPrefix:   destPrefix,
		DestHTMLKey:  destPrefix + htmlName,
		DestPDFKey:   destPrefix + pdfName,
	}
}

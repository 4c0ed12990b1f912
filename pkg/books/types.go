package books

import "github.com/rhuss/bookstore/pkg/api"

// volumesResponse is the subset of the volumes list response that is read.
type volumesResponse struct {
	TotalItems int      `json:"totalItems"`
	Items      []volume `json:"items"`
}

type volume struct {
	ID         string     `json:"id"`
	VolumeInfo volumeInfo `json:"volumeInfo"`
}

type volumeInfo struct {
	Title               string       `json:"title"`
	Authors             []string     `json:"authors"`
	Publisher           *string      `json:"publisher"`
	PublishedDate       *string      `json:"publishedDate"`
	Description         *string      `json:"description"`
	IndustryIdentifiers []identifier `json:"industryIdentifiers"`
	PageCount           *int         `json:"pageCount"`
	Language            *string      `json:"language"`
	ImageLinks          struct {
		SmallThumbnail *string `json:"smallThumbnail"`
		Thumbnail      *string `json:"thumbnail"`
	} `json:"imageLinks"`
}

type identifier struct {
	Type       string `json:"type"`
	Identifier string `json:"identifier"`
}

// simplify maps volumes onto records, dropping untitled ones. The result is
// never nil.
func simplify(items []volume) []api.BookRecord {
	out := make([]api.BookRecord, 0, len(items))
	for _, item := range items {
		info := item.VolumeInfo
		if info.Title == "" {
			continue
		}

		authors := info.Authors
		if authors == nil {
			authors = []string{}
		}

		cover := info.ImageLinks.Thumbnail
		if cover == nil {
			cover = info.ImageLinks.SmallThumbnail
		}

		out = append(out, api.BookRecord{
			GoogleBooksID: item.ID,
			Title:         info.Title,
			Authors:       authors,
			Publisher:     info.Publisher,
			PublishedDate: info.PublishedDate,
			Description:   info.Description,
			ISBN10:        findISBN(info.IndustryIdentifiers, "ISBN_10"),
			ISBN13:        findISBN(info.IndustryIdentifiers, "ISBN_13"),
			PageCount:     info.PageCount,
			Language:      info.Language,
			CoverImageURL: cover,
		})
	}
	return out
}

func findISBN(ids []identifier, kind string) *string {
	for _, id := range ids {
		if id.Type == kind {
			isbn := id.Identifier
			return &isbn
		}
	}
	return nil
}

package handler

import (
	"time"

	"github.com/msomdec/yappaholic/internal/domain"
)

// ViewerDTO is the JSON representation of the signed-in user.
type ViewerDTO struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

func toViewerDTO(v *domain.Viewer) ViewerDTO {
	return ViewerDTO{
		ID:          v.UserID,
		Email:       v.Email,
		DisplayName: v.DisplayName,
	}
}

// PostDTO is the JSON representation of a post.
type PostDTO struct {
	ID        string `json:"id"`
	Author    string `json:"author"`
	Text      string `json:"text"`
	CreatedAt string `json:"createdAt"`
}

// PostChangeDTO is one entry of a change batch on the JSON stream.
type PostChangeDTO struct {
	Kind string  `json:"kind"`
	Post PostDTO `json:"post"`
}

func toPostChangeDTOs(batch []domain.PostChange) []PostChangeDTO {
	out := make([]PostChangeDTO, len(batch))
	for i, c := range batch {
		dto := PostChangeDTO{
			Kind: string(c.Kind),
			Post: PostDTO{ID: c.Post.ID, Author: c.Post.Author, Text: c.Post.Text},
		}
		if !c.Post.CreatedAt.IsZero() {
			dto.Post.CreatedAt = c.Post.CreatedAt.Format(time.RFC3339Nano)
		}
		out[i] = dto
	}
	return out
}

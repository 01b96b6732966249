package dto

import (
	"time"

	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/domain/platform"
)

// Google Business Profile v4 review payloads.

type GoogleReviewsResponse struct {
	Reviews          []GoogleReview `json:"reviews"`
	AverageRating    float64        `json:"averageRating"`
	TotalReviewCount int            `json:"totalReviewCount"`
	NextPageToken    string         `json:"nextPageToken"`
}

type GoogleReview struct {
	Name        string             `json:"name"`
	ReviewID    string             `json:"reviewId"`
	Reviewer    GoogleReviewer     `json:"reviewer"`
	StarRating  string             `json:"starRating"`
	Comment     string             `json:"comment"`
	CreateTime  string             `json:"createTime"`
	UpdateTime  string             `json:"updateTime"`
	ReviewReply *GoogleReviewReply `json:"reviewReply,omitempty"`
}

type GoogleReviewer struct {
	DisplayName     string `json:"displayName"`
	ProfilePhotoURL string `json:"profilePhotoUrl"`
	IsAnonymous     bool   `json:"isAnonymous"`
}

type GoogleReviewReply struct {
	Comment    string `json:"comment"`
	UpdateTime string `json:"updateTime,omitempty"`
}

func (googleReview *GoogleReview) ToNativeReview() platform.NativeReview {
	author := googleReview.Reviewer.DisplayName
	if author == "" || googleReview.Reviewer.IsAnonymous {
		author = "Anonymous"
	}
	native := platform.NativeReview{
		ExternalID: googleReview.ReviewID,
		Author:     author,
		StarRating: googleReview.StarRating,
		Comment:    googleReview.Comment,
		CreateTime: parseGoogleTime(googleReview.CreateTime),
		UpdateTime: parseGoogleTime(googleReview.UpdateTime),
	}
	if googleReview.ReviewReply != nil && googleReview.ReviewReply.Comment != "" {
		native.Reply = &platform.NativeReply{
			Comment:    googleReview.ReviewReply.Comment,
			UpdateTime: parseGoogleTime(googleReview.ReviewReply.UpdateTime),
		}
	}
	return native
}

func (response *GoogleReviewsResponse) ToPage() *platform.Page {
	page := &platform.Page{
		Reviews:    make([]platform.NativeReview, 0, len(response.Reviews)),
		NextCursor: response.NextPageToken,
		TotalCount: response.TotalReviewCount,
	}
	for i := range response.Reviews {
		page.Reviews = append(page.Reviews, response.Reviews[i].ToNativeReview())
	}
	return page
}

func parseGoogleTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

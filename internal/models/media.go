package models

// MediaDescription is the normalised result of an extraction call, whatever the source platform.
//
// It is also the shape clients send back when adding a result to a playlist.
type MediaDescription struct {
	Platform        string   `json:"platform"`
	Title           string   `json:"title"`
	Thumbnail       string   `json:"thumbnail,omitempty"`
	Duration        string   `json:"duration"`
	DurationSeconds int      `json:"duration_seconds"`
	Quality         string   `json:"quality,omitempty"`
	Format          string   `json:"format,omitempty"`
	DownloadURL     string   `json:"download_url,omitempty"`
	Video           string   `json:"video,omitempty"`
	Audio           string   `json:"audio,omitempty"`
	Images          []string `json:"images,omitempty"`
	ViewCount       int64    `json:"view_count"`
	LikeCount       int64    `json:"like_count"`
	CommentCount    int64    `json:"comment_count"`
	ShareCount      int64    `json:"share_count"`
	Uploader        string   `json:"uploader,omitempty"`
	UploadDate      string   `json:"upload_date,omitempty"` // YYYYMMDD
	Description     string   `json:"description,omitempty"`
}

// MediaURL returns the first non-empty of the direct download link, the video asset and the audio asset.
func (m MediaDescription) MediaURL() string {
	for _, u := range []string{m.DownloadURL, m.Video, m.Audio} {
		if u != "" {
			return u
		}
	}
	return ""
}

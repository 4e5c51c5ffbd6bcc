// Package services turns a submitted media URL into a [models.MediaDescription] by delegating to an external provider.
//
// # Extractor Interface
//
// Every provider implements [Extractor]. The [Gateway] picks one by platform name:
// "tiktok" goes to [TikTokService], everything else to [YTDLPService].
//
// # TikTok Implementation
//
// [TikTokService] posts the URL to the tikwm API and maps its JSON envelope.
// A non-zero provider code is a failure. Outbound calls share a [rate.Limiter].
//
// # yt-dlp Implementation
//
// [YTDLPService] runs yt-dlp through go-ytdlp in dump-single-json mode, so nothing is downloaded.
// "mp3" selects the best audio stream extracted to mp3; any other format selects "best".
//
// # Error Handling
//
// Extraction is a single attempt. The gateway wraps every provider failure with
// [shared.ErrExtractionFailed] and never returns a partial description.
package services

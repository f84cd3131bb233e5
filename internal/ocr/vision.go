package ocr

import (
	"context"
	"errors"
	"fmt"
	"strings"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"
)

// Vision recognizes text with Google Cloud Vision document text detection.
type Vision struct {
	credentialsFile string
}

// NewVision creates a Cloud Vision recognizer. An empty credentialsFile
// falls back to Application Default Credentials.
func NewVision(credentialsFile string) *Vision {
	return &Vision{credentialsFile: credentialsFile}
}

func (v *Vision) clientOptions() []option.ClientOption {
	if v.credentialsFile == "" {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsFile(v.credentialsFile)}
}

// Recognize sends one image to Cloud Vision. The client is created for this
// call and closed before returning.
func (v *Vision) Recognize(ctx context.Context, image []byte, language string) (string, error) {
	client, err := vision.NewImageAnnotatorClient(ctx, v.clientOptions()...)
	if err != nil {
		return "", fmt.Errorf("%w: failed to create Vision client: %v", ErrEngineUnavailable, err)
	}
	defer client.Close()

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image:    &visionpb.Image{Content: image},
			Features: []*visionpb.Feature{{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION}},
			ImageContext: &visionpb.ImageContext{
				LanguageHints: languageHints(language),
			},
		}},
	}

	resp, err := client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return "", fmt.Errorf("Vision API request failed: %w", err)
	}
	if len(resp.GetResponses()) == 0 {
		return "", errors.New("Vision API returned no responses")
	}

	res := resp.GetResponses()[0]
	if status := res.GetError(); status != nil && status.GetCode() != 0 {
		return "", fmt.Errorf("Vision API failed to detect text: %s", status.GetMessage())
	}
	return res.GetFullTextAnnotation().GetText(), nil
}

// Info reports the Vision engine. Availability is not probed, since that
// would require a billed API call.
func (v *Vision) Info() EngineInfo {
	return EngineInfo{Engine: "vision", Available: true, Version: "v1"}
}

// Tesseract language codes are ISO 639-2; Vision wants BCP-47.
var visionLanguages = map[string]string{
	"eng": "en",
	"hin": "hi",
	"mal": "ml",
	"tam": "ta",
	"tel": "te",
	"kan": "kn",
}

func languageHints(language string) []string {
	var hints []string
	for _, code := range strings.Split(language, "+") {
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		if mapped, ok := visionLanguages[code]; ok {
			code = mapped
		}
		hints = append(hints, code)
	}
	return hints
}

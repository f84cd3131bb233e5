// Package imaging prepares photographs of identity cards for text recognition.
//
// The package works on encoded image bytes as received from a client and
// returns encoded PNG bytes. Decoding is delegated to the standard image
// registry, extended with BMP, TIFF and WebP from golang.org/x/image.
//
// # Enhancement Chain
//
// Preprocessor.Process applies, in order:
//
//  1. Dimension inspection (1000x600 assumed when the header is unreadable)
//  2. Margin crop: 3% of the width and 5% of the height from every edge
//  3. Grayscale conversion
//  4. Intensity normalization in CIE L* space
//  5. Linear contrast boost (gain * v + offset)
//  6. Unsharp sharpening
//  7. Fixed-level binarization
//  8. Lanczos resize to the target width, preserving aspect ratio
//  9. Rotation according to the EXIF orientation tag of the source bytes
//
// # Failure Behavior
//
// The chain never fails the caller. When any step errors, Process returns the
// original bytes unchanged together with the reason, so recognition can still
// run on the untouched photograph.
//
// # Coordinate System
//
// Pixel coordinates follow the image package convention: (0,0) is top-left,
// rectangles are inclusive at Min and exclusive at Max.
//
// # Thread Safety
//
// A Preprocessor holds only immutable options and is safe for concurrent use.
package imaging

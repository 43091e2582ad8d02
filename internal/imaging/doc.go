// Package imaging provides the I/O collaborators around the stencil core.
//
// The stencil package only works on in-memory pixel buffers. This package
// feeds it and consumes its output:
//   - ImageCache decodes PNG, JPEG, GIF and WebP files, applies EXIF
//     orientation and fits them to a maximum dimension (1200px on the
//     longer side by default, aspect ratio preserved).
//   - EncodePNG and Export turn artifacts back into files or base64 PNG.
//   - PaletteReport and DominantColors describe the colours of a buffer.
//
// # Coordinate System
//
// All pixel coordinates are 0-based with (0,0) at the top-left corner, X
// increasing rightward and Y increasing downward.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. Cached sources are immutable, so a
// single Source can feed any number of concurrent pipeline runs.
//
// # Error Handling
//
// Functions return errors for:
//   - File I/O errors during loading or export
//   - Undecodable or empty images
//   - Unsupported export formats
//
// # Performance Considerations
//
// Sources are cached for the lifetime of the cache. Use Evict or Clear in
// long-running processes to release memory.
package imaging

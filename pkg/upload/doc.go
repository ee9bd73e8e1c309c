// Package upload holds the file boundary of the dashboard forms: the File
// value chosen by a user, the tri-state FileValue stored per file field, the
// accept/reject Gates applied before a file enters form state, and the object
// URLs minted for image previews.
//
// Two gates exist and are configured independently: ImageGate (1 MiB, the
// project-wide image fields) and UploaderGate (5 MiB with a narrower MIME list,
// used by the category and gallery uploader). They are deliberately not
// unified.
package upload

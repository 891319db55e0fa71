// ABOUTME: Package track assembles chunked speech tracks with subtitles
// ABOUTME: Splice, seek, and subtitle paging on top of one stream engine source
package track

package mcpserver

// ItemFormatContract describes the canonical item format and the search
// query language for LLM consumers.
const ItemFormatContract = `# Stash Item Format Contract

Every item stored in Stash is a single JSON object.

## Structure

` + "```" + `json
{
  "id": "9b2d6f1a-...",            // OPTIONAL on save - assigned if missing
  "title": "Human-readable title", // REQUIRED - used in search and listings
  "body": "Free-form text",        // OPTIONAL - main content, searchable
  "link_url": "https://...",       // OPTIONAL - for saved links
  "link_title": "Page title",      // OPTIONAL - title of the linked page
  "file_name": "paper.pdf",        // OPTIONAL - attached asset file name
  "tags": ["reading", "go"],       // OPTIONAL - lowercase, used for filtering
  "collection": "research",        // OPTIONAL - single grouping bucket
  "protected": false,              // OPTIONAL - true hides body from search
  "type": "link",                  // OPTIONAL - link | snippet | document
  "source": "manual"               // OPTIONAL - web | clipper | manual | import
}
` + "```" + `

## Rules

1. **` + "`" + `title` + "`" + ` is required.** It is the primary display name everywhere.
2. **Tags** are lowercase; they are normalized on save (trimmed, deduplicated).
3. **Types:** ` + "`" + `link` + "`" + ` for saved URLs, ` + "`" + `snippet` + "`" + ` for short text captures,
   ` + "`" + `document` + "`" + ` for items with an attached file. Default is ` + "`" + `snippet` + "`" + `.
4. **Protected items** keep their body and summary out of the search index.
   Their titles and tags remain searchable.
5. **Timestamps** (` + "`" + `created_at` + "`" + `, ` + "`" + `updated_at` + "`" + `) are server-managed; never set them.

## Search query language

Queries passed to ` + "`" + `search_items` + "`" + ` combine three token kinds, all ANDed:

- **Free text:** bare words match with prefix expansion (` + "`" + `garden` + "`" + ` finds "gardening").
- **Phrases:** ` + "`" + `"machine learning"` + "`" + ` matches the exact word sequence.
- **Filters:** ` + "`" + `key:value` + "`" + ` restricts by attribute. Keys: ` + "`" + `type` + "`" + `, ` + "`" + `tag` + "`" + `,
  ` + "`" + `collection` + "`" + `, ` + "`" + `source` + "`" + `. Example: ` + "`" + `tag:work urgent` + "`" + ` or ` + "`" + `collection:"reading list"` + "`" + `.

Unknown filter keys are treated as free text. An empty query returns nothing.

## Assets

- Upload assets via the ` + "`" + `upload_asset` + "`" + ` tool. It returns a ` + "`" + `markdownImage` + "`" + ` field
  ready to paste into an item body.
- Assets are stored in the shared ` + "`" + `attachments/` + "`" + ` directory (flat, no sub-folders).
- Reference them from items by setting ` + "`" + `file_name` + "`" + ` or embedding
  ` + "`" + `![description](/attachments/filename.png)` + "`" + ` in the body.
- Supported formats: png, jpg, jpeg, gif, webp, svg, pdf.
`

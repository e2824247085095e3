// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package prompt

// Welcome is the display-only banner shown above an empty conversation.
// It is markdown and never part of the turn sequence.
const Welcome = `📚 **Welcome to BookBot!**

**How to get book recommendations:**

1. Open https://read.amazon.com/kindle-library?itemView=compact in a browser

2. Scroll through your entire library to load all books, then select everything on the page (**Cmd+A** / **Ctrl+A**)

3. Copy it (**Cmd+C** / **Ctrl+C**) and paste everything here

4. Send it to get personalized book recommendations based on your reading preferences!

Or just ask about books. Ready to get started? Paste your Kindle library below.`

// LibraryHint is shown while the unsent input looks like a library paste.
const LibraryHint = "📚 Kindle library detected! Send to get personalized book recommendations."

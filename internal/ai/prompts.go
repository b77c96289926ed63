// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import "fmt"

const (
	slidesSystem  = "You are a professional Xiaohongshu content creator and web designer."
	productSystem = "You are a professional Xiaohongshu content creator specializing in product recommendations."
	articleSystem = "You are an experienced long-form writer who adapts tone and depth to the target audience."

	// ImagePromptSuffix is appended to every suggested image prompt.
	ImagePromptSuffix = ", Xiaohongshu aesthetic, high quality, soft lighting"
)

func slidesPrompt(text string, wrapped bool) string {
	shape := "The response MUST be a JSON array of objects."
	if wrapped {
		shape = `The response MUST be a JSON object of the form {"slides": [...]} where the array holds the slides.`
	}
	return fmt.Sprintf(`Analyze the provided reference image (if any) for style, layout, typography, and color palette.
Then, create a series of 3-5 high-quality Xiaohongshu-style content slides based on this text: %q.

%s Each slide object has:
- title: A short description of the slide.
- html: The HTML structure of the slide (use inline Tailwind classes where possible or simple divs).
- css: Any extra CSS needed (wrap it in a single string).

Style Guide:
- Modern, clean, aesthetically pleasing.
- Use bold headings, emojis, and clear call-to-actions.
- Layout should be portrait (ideal for mobile).
- For text elements with background colors, use inline-flex with items-center and justify-center to ensure horizontal and vertical centering.
- Example for highlighted text: <span class="inline-flex items-center justify-center bg-red-500 text-white px-2 py-1 rounded">Important Text</span>`, text, shape)
}

func productPrompt(info string) string {
	return fmt.Sprintf(`Generate a high-conversion Xiaohongshu (Red) product recommendation ("Zhongcao") post for: %q.
The post should include:
1. productName: A short 2-4 word product name.
2. title: A catchy, emoji-rich viral title.
3. content: Engaging body text with personal tone and emojis.
4. sellingPoints: A list of 4-6 key selling point tags.
5. tags: 8-10 relevant hashtags starting with #.
6. suggestedImages: 5 high-quality visual descriptions for AI image generation.

Response MUST be a single JSON object.`, info)
}

func articlePrompt(title, audience string) string {
	return fmt.Sprintf(`Write a complete, well-structured article titled %q for this audience: %q.
Use Markdown with headings, short paragraphs and lists where they help. Do not wrap the article in a code fence.

Response MUST be a single JSON object with:
- title: The final article title.
- content: The full article body in Markdown.`, title, audience)
}

package prompt

// AccountTemplate is filled with bio, followers, window days, floor, selected
// posts, stories and the number of suggestions.
const AccountTemplate = `Instagram account analysis:
Bio: %s
Followers: %d
Posts (last %d days or last %d): %d
Stories: %d
Evaluate the consistency and effectiveness of the bio and the overall use of Posts and Stories. Suggest %d key improvements.`

// PostTemplate is filled with caption, likes, comments and the number of suggestions.
const PostTemplate = `Instagram post analysis:
Caption: %s
Likes: %d
Comments: %d
How effective is this post? Suggest %d ways to improve engagement for future posts with similar themes.`

// CommentsTemplate is filled with the bulleted comment list.
const CommentsTemplate = `Analyze the overall sentiment of these post comments:
%s
Are there recurring themes or audience questions that the account could address better?`

const noCaption = "(no caption)"
